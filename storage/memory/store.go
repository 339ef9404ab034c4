// Package memory provides the in-process reference implementation of
// storage.VectorStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/storage"
)

// Store keeps records in insertion order and searches by full scan.
type Store struct {
	mu        sync.RWMutex
	dimension int
	records   []*core.VectorRecord
	closed    bool
	now       func() time.Time
}

var _ storage.VectorStore = (*Store)(nil)

// New creates an empty store for vectors of length dimension.
// Returns concrete type so tests can inspect Len.
func New(dimension int) *Store {
	return &Store{dimension: dimension, now: time.Now}
}

// Dimension returns the store's vector length.
func (s *Store) Dimension() int {
	return s.dimension
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Add validates the batch and appends copies of the records.
func (s *Store) Add(ctx context.Context, records ...*core.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateRecords(s.dimension, records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	now := s.now().UTC()
	for _, r := range records {
		c := storage.CloneRecord(r)
		c.CreatedAt = now
		s.records = append(s.records, c)
	}
	return nil
}

// SimilaritySearch scans every record.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int) ([]*core.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateQuery(s.dimension, query); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStorageClosed
	}
	snapshot := make([]*core.VectorRecord, len(s.records))
	copy(snapshot, s.records)
	s.mu.RUnlock()

	results := storage.RankTopK(query, snapshot, k)
	for _, r := range results {
		r.Record = storage.CloneRecord(r.Record)
	}
	return results, nil
}

// DeleteByIngestionID drops every record of ingestionID.
func (s *Store) DeleteByIngestionID(ctx context.Context, ingestionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if r.Metadata.IngestionID != ingestionID {
			kept = append(kept, r)
		}
	}
	clear(s.records[len(kept):])
	s.records = kept
	return nil
}

// Reset removes every record.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	s.records = nil
	return nil
}

// Close marks the store closed. Further operations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
