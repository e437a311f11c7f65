// Package similarity holds the ranking rules shared by every vector repository.
package similarity

import (
	"math"
	"sort"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

// Cosine returns dot(a, b) / (|a| * |b|).
// A zero-magnitude operand yields 0. Mismatched lengths compare the common prefix.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors a hair past 1.
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Candidate is a scored record together with its insertion sequence.
type Candidate struct {
	Result domain.QueryResult

	// Seq orders records by first insertion. Lower means older.
	Seq int64
}

// Rank drops candidates below threshold, orders the rest by descending
// similarity with ties broken by Seq, and truncates to count.
// The returned slice is never nil.
func Rank(candidates []Candidate, threshold float64, count int) []domain.QueryResult {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if math.IsNaN(c.Result.Similarity) || c.Result.Similarity < threshold {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Result.Similarity != kept[j].Result.Similarity {
			return kept[i].Result.Similarity > kept[j].Result.Similarity
		}
		return kept[i].Seq < kept[j].Seq
	})

	if count >= 0 && len(kept) > count {
		kept = kept[:count]
	}

	results := make([]domain.QueryResult, len(kept))
	for i := range kept {
		results[i] = kept[i].Result
	}
	return results
}
