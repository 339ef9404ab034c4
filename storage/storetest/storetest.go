// Package storetest holds behavior tests every storage.VectorStore must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens an empty store of the given dimension. The store is closed
// by the suite.
type Factory func(t *testing.T, dimension int) storage.VectorStore

// Record builds a valid record for tests.
func Record(ingestionID, chunkID string, index int, vector ...float32) *core.VectorRecord {
	return &core.VectorRecord{
		Vector: vector,
		Metadata: core.VectorMetadata{
			IngestionID:    ingestionID,
			ChunkID:        chunkID,
			ChunkIndex:     index,
			ChunkStrategy:  "simple",
			ChunkText:      "text of " + chunkID,
			SourceMetadata: map[string]any{"source_file": "doc.txt"},
			Provider:       "mock",
		},
	}
}

func ids(results []*core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.Metadata.ChunkID
	}
	return out
}

// Run executes the suite against stores created by factory.
func Run(t *testing.T, factory Factory) {
	open := func(t *testing.T, dim int) storage.VectorStore {
		s := factory(t, dim)
		t.Cleanup(func() { s.Close() })
		return s
	}
	ctx := context.Background()

	t.Run("search then delete by ingestion", func(t *testing.T) {
		s := open(t, 3)
		assert.Equal(t, 3, s.Dimension())
		require.NoError(t, s.Add(ctx, Record("a", "a:0", 0, 1, 0, 0)))
		require.NoError(t, s.Add(ctx, Record("b", "b:0", 0, 0, 1, 0)))

		results, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a", results[0].Record.Metadata.IngestionID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)

		require.NoError(t, s.DeleteByIngestionID(ctx, "a"))

		results, err = s.SimilaritySearch(ctx, []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "b", results[0].Record.Metadata.IngestionID)

		results, err = s.SimilaritySearch(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("metadata round trip", func(t *testing.T) {
		s := open(t, 2)
		in := Record("ing", "c:0", 4, 0.6, 0.8)
		in.Metadata.ChunkStrategy = "paragraph"
		in.Metadata.Provider = "ollama"
		require.NoError(t, s.Add(ctx, in))

		results, err := s.SimilaritySearch(ctx, []float32{0.6, 0.8}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		got := results[0].Record.Metadata
		assert.Equal(t, "ing", got.IngestionID)
		assert.Equal(t, "c:0", got.ChunkID)
		assert.Equal(t, 4, got.ChunkIndex)
		assert.Equal(t, "paragraph", got.ChunkStrategy)
		assert.Equal(t, "text of c:0", got.ChunkText)
		assert.Equal(t, "ollama", got.Provider)
		assert.Equal(t, "doc.txt", got.SourceMetadata["source_file"])
	})

	t.Run("ordering and ties", func(t *testing.T) {
		s := open(t, 2)
		require.NoError(t, s.Add(ctx,
			Record("i", "far", 0, 0, 1),
			Record("i", "tie-1", 1, 1, 0),
			Record("i", "near", 2, 1, 0.1),
			Record("i", "tie-2", 3, 2, 0),
		))

		results, err := s.SimilaritySearch(ctx, []float32{1, 0}, 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"tie-1", "tie-2", "near", "far"}, ids(results))
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("search is idempotent", func(t *testing.T) {
		s := open(t, 2)
		require.NoError(t, s.Add(ctx, Record("i", "x", 0, 1, 2), Record("i", "y", 1, 2, 1), Record("i", "z", 2, -1, 0)))

		first, err := s.SimilaritySearch(ctx, []float32{1, 1}, 3)
		require.NoError(t, err)
		second, err := s.SimilaritySearch(ctx, []float32{1, 1}, 3)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(second))
	})

	t.Run("dimension mismatch rejects whole batch", func(t *testing.T) {
		s := open(t, 3)
		err := s.Add(ctx, Record("i", "ok", 0, 1, 0, 0), Record("i", "bad", 1, 1, 0))
		require.ErrorIs(t, err, storage.ErrDimensionMismatch)
		var derr *storage.DimensionError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, 3, derr.Expected)
		assert.Equal(t, 2, derr.Got)

		results, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		s := open(t, 3)
		_, err := s.SimilaritySearch(ctx, []float32{1, 0}, 1)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("k zero and empty store", func(t *testing.T) {
		s := open(t, 2)
		results, err := s.SimilaritySearch(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)

		require.NoError(t, s.Add(ctx, Record("i", "x", 0, 1, 0)))
		results, err = s.SimilaritySearch(ctx, []float32{1, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("zero query vector scores zero", func(t *testing.T) {
		s := open(t, 2)
		require.NoError(t, s.Add(ctx, Record("i", "x", 0, 1, 0)))
		results, err := s.SimilaritySearch(ctx, []float32{0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, float32(0), results[0].Score)
	})

	t.Run("stored zero-norm vector scores zero and ranks above negative similarity", func(t *testing.T) {
		s := open(t, 2)
		require.NoError(t, s.Add(ctx, Record("i", "neg", 0, -1, 0), Record("i", "zero", 1, 0, 0)))
		results, err := s.SimilaritySearch(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, []string{"zero", "neg"}, ids(results))
		assert.Equal(t, float32(0), results[0].Score)
		assert.InDelta(t, -1.0, results[1].Score, 1e-5)
	})

	t.Run("delete is exact", func(t *testing.T) {
		s := open(t, 2)
		require.NoError(t, s.Add(ctx, Record("keep", "k0", 0, 1, 0), Record("drop", "d0", 0, 1, 0), Record("keep", "k1", 1, 0, 1)))

		require.NoError(t, s.DeleteByIngestionID(ctx, "drop"))
		require.NoError(t, s.DeleteByIngestionID(ctx, "never-existed"))

		results, err := s.SimilaritySearch(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"k0", "k1"}, ids(results))
	})

	t.Run("reset empties the store", func(t *testing.T) {
		s := open(t, 2)
		require.NoError(t, s.Add(ctx, Record("i", "x", 0, 1, 0)))
		require.NoError(t, s.Reset(ctx))

		results, err := s.SimilaritySearch(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, results)

		require.NoError(t, s.Add(ctx, Record("i", "y", 0, 0, 1)))
		results, err = s.SimilaritySearch(ctx, []float32{0, 1}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"y"}, ids(results))
	})

	t.Run("invalid metadata rejected", func(t *testing.T) {
		s := open(t, 2)
		bad := Record("", "x", 0, 1, 0)
		assert.ErrorIs(t, s.Add(ctx, bad), core.ErrInvalidRecord)
	})
	t.Run("closed store rejects operations", func(t *testing.T) {
		s := factory(t, 2)
		require.NoError(t, s.Add(ctx, Record("i", "x", 0, 1, 0)))
		require.NoError(t, s.Close())

		assert.ErrorIs(t, s.Add(ctx, Record("i", "y", 1, 0, 1)), storage.ErrStorageClosed)
		_, err := s.SimilaritySearch(ctx, []float32{1, 0}, 1)
		assert.ErrorIs(t, err, storage.ErrStorageClosed)
		assert.ErrorIs(t, s.DeleteByIngestionID(ctx, "i"), storage.ErrStorageClosed)
		assert.ErrorIs(t, s.Reset(ctx), storage.ErrStorageClosed)
		assert.NoError(t, s.Close())
	})
}
