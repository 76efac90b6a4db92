package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver() *Resolver {
	categories := map[string]string{
		"Books":         "Books",
		"Movies_and_TV": "Movies & TV",
	}
	return NewResolver([]string{"Books", "Movies_and_TV"}, func(domain string) string {
		return categories[domain]
	})
}

func testSampler(t *testing.T, seed int64) *Sampler {
	t.Helper()
	path := writeCSV(t, "pool.csv",
		"user_id,item_0,item_1,item_2,item_3\n"+
			"u1,b1,b2,b3,b4\n")
	pool, err := LoadCandidatePool(path)
	require.NoError(t, err)
	return NewSampler(testResolver(), map[string]*CandidatePool{"Books": pool}, seed)
}

func TestResolverDomain(t *testing.T) {
	r := testResolver()

	domain, err := r.Domain("Movies & TV")
	require.NoError(t, err)
	assert.Equal(t, "Movies_and_TV", domain)

	_, err = r.Domain("Garden & Outdoor")
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestSampleDrawsFromPool(t *testing.T) {
	s := testSampler(t, 1)

	for i := 0; i < 20; i++ {
		id, err := s.Sample("Books", "u1")
		require.NoError(t, err)
		assert.Contains(t, []string{"b1", "b2", "b3", "b4"}, id)
	}
}

func TestSampleErrors(t *testing.T) {
	s := testSampler(t, 1)

	_, err := s.Sample("Garden & Outdoor", "u1")
	assert.True(t, errors.Is(err, ErrUnknownCategory))

	_, err = s.Sample("Books", "stranger")
	assert.Error(t, err)

	_, err = s.Sample("Movies & TV", "u1")
	assert.Error(t, err) // no pool loaded for that domain
}

func TestSampleNIsSeeded(t *testing.T) {
	a := testSampler(t, 42)
	b := testSampler(t, 42)

	idsA, err := a.SampleN("Books", "u1", 10)
	require.NoError(t, err)
	idsB, err := b.SampleN("Books", "u1", 10)
	require.NoError(t, err)

	assert.Equal(t, idsA, idsB)
}

func TestShuffleIsSeeded(t *testing.T) {
	a := testSampler(t, 7)
	b := testSampler(t, 7)

	idsA := []string{"x", "y", "z", "w"}
	idsB := []string{"x", "y", "z", "w"}
	a.Shuffle(idsA)
	b.Shuffle(idsB)

	assert.Equal(t, idsA, idsB)
	assert.ElementsMatch(t, []string{"x", "y", "z", "w"}, idsA)
}
