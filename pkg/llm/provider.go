// Package llm provides abstractions for LLM provider integration.
//
// Providers handle API communication with chat-completion services and
// return plain response text. This design keeps providers focused on LLM
// concerns without coupling them to simulation-level orchestration.
//
// The trainer and evaluator layers are responsible for:
// - Building prompts from memory state
// - Parsing structured fields out of free-text responses
// - Deciding what a failed call means for the current step
//
// This separation allows providers to be reusable in non-simulation
// contexts and testable independently of loop logic.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the API call succeeds but carries no
// choices or no content.
var ErrEmptyResponse = errors.New("llm: empty response from provider")

// Provider defines the interface for LLM integrations.
//
// Complete sends a single user-role prompt and returns the model's full
// response text. The model output is free text with no guaranteed schema;
// callers parse it themselves and must treat the provider as a
// non-deterministic oracle.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)

	// Model returns the model name being used.
	Model() string
}
