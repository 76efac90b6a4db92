package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned by RetryProvider.Complete after every
// attempt has failed. The caller must treat it as fatal for the current
// step; there is no further recovery inside the client.
var ErrRetriesExhausted = errors.New("llm: retries exhausted")

const (
	defaultMaxAttempts = 10
	defaultRetryDelay  = 2 * time.Second
)

// RetryProvider wraps a Provider with bounded retry-on-failure. Every error
// from the underlying provider is retried after a fixed delay; there is no
// rate-limit-aware backoff and no circuit breaker. Failures are resolved by
// exhaustion only.
type RetryProvider struct {
	inner       Provider
	maxAttempts int
	delay       time.Duration
	sleep       func(context.Context, time.Duration) error
}

// RetryOption configures a RetryProvider.
type RetryOption func(*RetryProvider)

// WithMaxAttempts overrides the attempt bound (default 10).
func WithMaxAttempts(n int) RetryOption {
	return func(r *RetryProvider) {
		r.maxAttempts = n
	}
}

// WithRetryDelay overrides the fixed inter-attempt delay (default 2s).
func WithRetryDelay(d time.Duration) RetryOption {
	return func(r *RetryProvider) {
		r.delay = d
	}
}

// WithSleepFunc replaces the delay implementation. Tests use this to avoid
// real waits.
func WithSleepFunc(f func(context.Context, time.Duration) error) RetryOption {
	return func(r *RetryProvider) {
		r.sleep = f
	}
}

// NewRetryProvider wraps inner with the default 10-attempt, 2-second-delay
// retry policy.
func NewRetryProvider(inner Provider, opts ...RetryOption) *RetryProvider {
	r := &RetryProvider{
		inner:       inner,
		maxAttempts: defaultMaxAttempts,
		delay:       defaultRetryDelay,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete calls the underlying provider until it succeeds or the attempt
// bound is reached. The returned error wraps ErrRetriesExhausted along with
// the last underlying failure. Context cancellation aborts immediately.
func (r *RetryProvider) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		text, err := r.inner.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == r.maxAttempts {
			break
		}
		if err := r.sleep(ctx, r.delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, r.maxAttempts, lastErr)
}

// Model returns the underlying provider's model name.
func (r *RetryProvider) Model() string {
	return r.inner.Model()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
