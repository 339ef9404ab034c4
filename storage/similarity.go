package storage

import (
	"math"
	"slices"

	"github.com/poiesic/vectorize/core"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// A zero-norm vector has similarity 0 with everything. Vectors of different
// length are compared over their common prefix.
func CosineSimilarity(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) {
		return 0
	}
	return float32(sim)
}

// ValidateRecords checks every record against dim before anything is written.
func ValidateRecords(dim int, records []*core.VectorRecord) error {
	for _, r := range records {
		if err := core.ValidateVectorRecord(r); err != nil {
			return err
		}
		if len(r.Vector) != dim {
			return &DimensionError{Expected: dim, Got: len(r.Vector), ChunkID: r.Metadata.ChunkID}
		}
	}
	return nil
}

// ValidateQuery checks a query vector's length.
func ValidateQuery(dim int, query []float32) error {
	if len(query) != dim {
		return &DimensionError{Expected: dim, Got: len(query)}
	}
	return nil
}

// RankTopK scores records against query and returns the best k. Records must
// be supplied in insertion order; the stable sort keeps that order for ties.
func RankTopK(query []float32, records []*core.VectorRecord, k int) []*core.SearchResult {
	if k <= 0 || len(records) == 0 {
		return []*core.SearchResult{}
	}
	results := make([]*core.SearchResult, len(records))
	for i, r := range records {
		results[i] = &core.SearchResult{Record: r, Score: CosineSimilarity(query, r.Vector)}
	}
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// CloneRecord returns a deep copy so callers cannot mutate stored state.
func CloneRecord(r *core.VectorRecord) *core.VectorRecord {
	out := *r
	out.Vector = slices.Clone(r.Vector)
	if r.Metadata.SourceMetadata != nil {
		out.Metadata.SourceMetadata = make(map[string]any, len(r.Metadata.SourceMetadata))
		for k, v := range r.Metadata.SourceMetadata {
			out.Metadata.SourceMetadata[k] = v
		}
	}
	return &out
}
