package storage

import (
	"context"

	"github.com/poiesic/vectorize/core"
)

// VectorStore persists vector records and answers nearest-neighbour queries.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Dimension is the fixed vector length of this store.
	Dimension() int

	// Add validates every record, then writes them all. A record with the
	// wrong dimension or invalid metadata rejects the whole call with nothing
	// written.
	Add(ctx context.Context, records ...*core.VectorRecord) error

	// SimilaritySearch returns up to k records ordered by descending cosine
	// similarity to query. Ties keep insertion order. k <= 0 returns an empty
	// result. A query of the wrong length is an error.
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]*core.SearchResult, error)

	// DeleteByIngestionID removes every record of one ingestion. Unknown ids
	// are a no-op.
	DeleteByIngestionID(ctx context.Context, ingestionID string) error

	// Reset removes every record.
	Reset(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
