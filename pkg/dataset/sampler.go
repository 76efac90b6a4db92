package dataset

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrUnknownCategory is returned when an item's main category matches none
// of the run's domains. The loop treats it as fatal for the current step
// only; category strings are pre-validated upstream, so this path should be
// rare.
var ErrUnknownCategory = errors.New("dataset: unknown category")

// Resolver maps catalog main_category strings to run domains by exact
// string match.
type Resolver struct {
	byCategory map[string]string
}

// NewResolver builds a resolver from the run's domain list and the
// domain-to-main-category mapping.
func NewResolver(domains []string, mainCategory func(domain string) string) *Resolver {
	byCategory := make(map[string]string, len(domains))
	for _, d := range domains {
		byCategory[mainCategory(d)] = d
	}
	return &Resolver{byCategory: byCategory}
}

// Domain resolves a main_category string to its domain.
func (r *Resolver) Domain(category string) (string, error) {
	if d, ok := r.byCategory[category]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}

// Sampler draws negative items from the precomputed per-domain candidate
// pools. Draws are uniform over the user's fixed-width pool row and
// independent: the same negative may recur across interactions. The random
// source is seeded, so runs are reproducible.
type Sampler struct {
	resolver *Resolver
	pools    map[string]*CandidatePool
	rng      *rand.Rand
}

// NewSampler builds a sampler over one pool per domain.
func NewSampler(resolver *Resolver, pools map[string]*CandidatePool, seed int64) *Sampler {
	return &Sampler{
		resolver: resolver,
		pools:    pools,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Sample draws one negative item id for the user in the category's domain.
// An unknown category or a user absent from the pool is an error.
func (s *Sampler) Sample(category, userID string) (string, error) {
	ids, err := s.SampleN(category, userID, 1)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// SampleN draws n independent negatives (no dedup; repeats are possible,
// matching the candidate assembly in evaluation).
func (s *Sampler) SampleN(category, userID string, n int) ([]string, error) {
	domain, err := s.resolver.Domain(category)
	if err != nil {
		return nil, err
	}
	pool, ok := s.pools[domain]
	if !ok {
		return nil, fmt.Errorf("dataset: no candidate pool for domain %q", domain)
	}
	row, ok := pool.Row(userID)
	if !ok {
		return nil, fmt.Errorf("dataset: user %q not in candidate pool for domain %q", userID, domain)
	}
	if len(row) == 0 {
		return nil, fmt.Errorf("dataset: empty candidate row for user %q in domain %q", userID, domain)
	}

	out := make([]string, n)
	for i := range out {
		out[i] = row[s.rng.Intn(len(row))]
	}
	return out, nil
}

// Shuffle permutes ids in place using the sampler's seeded source, so
// candidate ordering in evaluation is reproducible too.
func (s *Sampler) Shuffle(ids []string) {
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
