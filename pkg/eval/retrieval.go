package eval

import (
	"math"
	"strings"
	"unicode"
)

// MostSimilar returns the index of the corpus entry most similar to the
// target under TF-IDF cosine similarity, or -1 for an empty corpus. Ties
// resolve to the earliest entry. The B+R strategy uses this to pull the
// long-memory entry closest to the candidate descriptions.
func MostSimilar(corpus []string, target string) int {
	if len(corpus) == 0 {
		return -1
	}

	docs := make([][]string, 0, len(corpus)+1)
	for _, doc := range corpus {
		docs = append(docs, tokenize(doc))
	}
	docs = append(docs, tokenize(target))

	// Document frequency with add-one smoothing, sklearn style:
	// idf = ln((1+n)/(1+df)) + 1.
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, term := range doc {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}
	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	vectors := make([]map[string]float64, len(docs))
	for i, doc := range docs {
		vectors[i] = vectorize(doc, idf)
	}

	targetVec := vectors[len(vectors)-1]
	best, bestSim := 0, math.Inf(-1)
	for i := 0; i < len(corpus); i++ {
		if sim := cosine(vectors[i], targetVec); sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func vectorize(terms []string, idf map[string]float64) map[string]float64 {
	vec := make(map[string]float64)
	for _, term := range terms {
		vec[term] += 1
	}
	for term := range vec {
		vec[term] *= idf[term]
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, x := range a {
		normA += x * x
		if y, ok := b[term]; ok {
			dot += x * y
		}
	}
	for _, y := range b {
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
