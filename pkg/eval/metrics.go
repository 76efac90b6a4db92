// Package eval replays a held-out interaction set, asks the LLM to rank
// candidate items, and scores the rankings with NDCG and MRR.
package eval

import "math"

// DCG computes discounted cumulative gain over the first k relevance
// scores. Position i contributes rel[i]/log2(i+2); the +2 keeps the first
// position's discount at log2(2)=1.
func DCG(relevance []float64, k int) float64 {
	dcg := 0.0
	for i := 0; i < k && i < len(relevance); i++ {
		dcg += relevance[i] / math.Log2(float64(i+2))
	}
	return dcg
}

// IDCG is the DCG of the ideal (descending) ordering of the same scores.
func IDCG(relevance []float64, k int) float64 {
	sorted := make([]float64, len(relevance))
	copy(sorted, relevance)
	// Sort descending.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] > sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return DCG(sorted, k)
}

// NDCG is DCG normalized by IDCG, 0 when the list has no relevant item.
func NDCG(relevance []float64, k int) float64 {
	idcg := IDCG(relevance, k)
	if idcg == 0 {
		return 0.0
	}
	return DCG(relevance, k) / idcg
}

// ReciprocalRank returns 1/rank for a 1-indexed target rank, 0 when the
// target was not found (rank <= 0).
func ReciprocalRank(rank int) float64 {
	if rank <= 0 {
		return 0.0
	}
	return 1.0 / float64(rank)
}

// mean averages a slice, 0 for empty input.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
