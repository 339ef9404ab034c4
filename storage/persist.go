package storage

import (
	"context"
	"fmt"

	"github.com/poiesic/vectorize/core"
)

// BuildRecords pairs chunks with their embeddings. ChunkIndex is the chunk's
// position in this batch, so it is unique within one ingestion call.
func BuildRecords(chunks []core.Chunk, embeddings [][]float32, ingestionID, provider string) ([]*core.VectorRecord, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", ErrCountMismatch, len(chunks), len(embeddings))
	}
	if provider == "" {
		provider = "mock"
	}

	records := make([]*core.VectorRecord, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if err := core.ValidateChunk(c); err != nil {
			return nil, err
		}
		records[i] = &core.VectorRecord{
			Vector: embeddings[i],
			Metadata: core.VectorMetadata{
				IngestionID:    ingestionID,
				ChunkID:        c.ID,
				ChunkIndex:     i,
				ChunkStrategy:  c.Strategy(),
				ChunkText:      c.Content,
				SourceMetadata: c.Metadata.Map(),
				Provider:       provider,
			},
		}
	}
	return records, nil
}

// Persist builds records from chunks and embeddings and writes them to store
// in one Add call.
func Persist(ctx context.Context, store VectorStore, chunks []core.Chunk, embeddings [][]float32, ingestionID, provider string) ([]*core.VectorRecord, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	records, err := BuildRecords(chunks, embeddings, ingestionID, provider)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}
	if err := store.Add(ctx, records...); err != nil {
		return nil, err
	}
	return records, nil
}
