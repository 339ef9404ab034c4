package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vectorize/storage"
	"github.com/poiesic/vectorize/storage/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, dim int) storage.VectorStore {
		s, err := NewMemoryStore(dim)
		require.NoError(t, err)
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, 2)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, storetest.Record("i", "x", 0, 1, 0)))
	require.NoError(t, s.Close())

	s, err = Open(dir, 2)
	require.NoError(t, err)
	defer s.Close()

	results, err := s.SimilaritySearch(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x", results[0].Record.Metadata.ChunkID)
	assert.False(t, results[0].Record.CreatedAt.IsZero())
}

func TestStore_DimensionChangeRejected(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, 3)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(dir, 4)
	require.ErrorIs(t, err, storage.ErrSchema)
	var schemaErr *storage.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Detail, "dimension 3")
}

func TestStore_DeleteDoesNotMatchPrefixIDs(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore(2)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(ctx, storetest.Record("run", "a", 0, 1, 0), storetest.Record("run-2", "b", 0, 1, 0)))
	require.NoError(t, s.DeleteByIngestionID(ctx, "run"))

	results, err := s.SimilaritySearch(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "run-2", results[0].Record.Metadata.IngestionID)
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore(2)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Add(ctx, storetest.Record("i", "x", 0, 1, 0)), storage.ErrStorageClosed)
	_, err = s.SimilaritySearch(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, s.Reset(ctx), storage.ErrStorageClosed)
}

func TestStore_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	s, err := NewStore(backend, 2)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.False(t, backend.IsClosed())
}
