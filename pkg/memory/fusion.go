package memory

import (
	"fmt"
	"sort"
)

// DefaultRRFK is the standard RRF rank constant.
const DefaultRRFK = 60.0

// Weights holds the per-signal multipliers applied during rank fusion.
type Weights struct {
	BM25       float64 `json:"bm25"`
	Vector     float64 `json:"vector"`
	Recency    float64 `json:"recency"`
	Importance float64 `json:"importance"`
}

// DefaultWeights weighs all four signals equally.
func DefaultWeights() Weights {
	return Weights{BM25: 1, Vector: 1, Recency: 1, Importance: 1}
}

// Fuser merges the four per-signal rankings into one combined score per
// entry using Reciprocal Rank Fusion. Fusing on rank position rather than
// raw magnitude sidesteps the mismatched scales of the signals: BM25 is
// unbounded, cosine lives in [-1,1], recency and importance in [0,1].
type Fuser struct {
	k       float64
	weights Weights
}

// NewFuser creates a fuser with the given RRF constant and signal weights.
// The constant must be positive and no weight may be negative.
func NewFuser(k float64, weights Weights) (*Fuser, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: rrf constant must be > 0, got %v", ErrInvalidConfig, k)
	}
	for name, w := range map[string]float64{
		"bm25":       weights.BM25,
		"vector":     weights.Vector,
		"recency":    weights.Recency,
		"importance": weights.Importance,
	} {
		if w < 0 {
			return nil, fmt.Errorf("%w: %s weight must be >= 0, got %v", ErrInvalidConfig, name, w)
		}
	}
	return &Fuser{k: k, weights: weights}, nil
}

// Fuse fills in Combined and Rank on the given results, sorts them
// descending by combined score, and truncates to limit (limit <= 0 keeps
// everything). Results must arrive with their raw signal scores set; the
// incoming order is the tiebreak within each signal's ranking.
func (f *Fuser) Fuse(results []*SearchResult, limit int) []*SearchResult {
	if len(results) == 0 {
		return nil
	}

	for _, signal := range []struct {
		weight float64
		score  func(*SearchResult) float64
	}{
		{f.weights.BM25, func(r *SearchResult) float64 { return r.BM25Score }},
		{f.weights.Vector, func(r *SearchResult) float64 { return r.VectorScore }},
		{f.weights.Recency, func(r *SearchResult) float64 { return r.RecencyScore }},
		{f.weights.Importance, func(r *SearchResult) float64 { return r.ImportanceScore }},
	} {
		order := make([]int, len(results))
		for i := range order {
			order[i] = i
		}
		// Stable sort keeps insertion order as the tiebreak.
		sort.SliceStable(order, func(a, b int) bool {
			return signal.score(results[order[a]]) > signal.score(results[order[b]])
		})
		for rank, idx := range order {
			results[idx].Combined += signal.weight / (float64(rank) + f.k)
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Combined > results[b].Combined
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	return results
}
