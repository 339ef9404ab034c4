package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/storage"
)

// Store implements storage.VectorStore on BadgerDB. BadgerDB has no
// similarity operator, so searches scan every record.
type Store struct {
	backend     *Backend
	ownsBackend bool
	dimension   int
	idSeq       *badger.Sequence
	logger      *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ storage.VectorStore = (*Store)(nil)

// Open opens or creates a store at path. The store owns the backend and
// closes it on Close.
//
// Returns storage.VectorStore interface to enforce abstraction.
func Open(path string, dimension int) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, storage.BackendError("open", err)
	}
	s, err := newStore(backend, dimension)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownsBackend = true
	return s, nil
}

// NewStore creates a store on an existing backend. The caller keeps
// ownership of the backend.
func NewStore(backend *Backend, dimension int) (*Store, error) {
	return newStore(backend, dimension)
}

func newStore(backend *Backend, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d must be positive", storage.ErrSchema, dimension)
	}
	if err := checkDimension(backend, dimension); err != nil {
		return nil, err
	}
	idSeq, err := backend.GetSequence(vectorIDSeq)
	if err != nil {
		return nil, storage.BackendError("sequence", err)
	}
	return &Store{
		backend:   backend,
		dimension: dimension,
		idSeq:     idSeq,
		logger:    backend.logger.With("component", "badger-vector-store"),
	}, nil
}

// checkDimension records the dimension on first use and rejects a mismatch later.
func checkDimension(backend *Backend, dimension int) error {
	return backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(vectorDimensionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			if err := tx.Set([]byte(vectorDimensionKey), encodeDimension(dimension)); err != nil {
				return storage.BackendError("record dimension", err)
			}
			return tx.Commit()
		}
		if err != nil {
			return storage.BackendError("read dimension", err)
		}
		var stored int
		err = item.Value(func(val []byte) error {
			var derr error
			stored, derr = decodeDimension(val)
			return derr
		})
		if err != nil {
			return &storage.SchemaError{Table: vectorRecordPrefix, Expected: fmt.Sprintf("dimension %d", dimension), Detail: err.Error()}
		}
		if stored != dimension {
			return &storage.SchemaError{
				Table:    vectorRecordPrefix,
				Expected: fmt.Sprintf("dimension %d", dimension),
				Detail:   fmt.Sprintf("database holds vectors of dimension %d", stored),
			}
		}
		return nil
	}, true)
}

// Dimension returns the store's vector length.
func (s *Store) Dimension() int {
	return s.dimension
}

func (s *Store) checkOpen() error {
	if s.closed || s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Add validates the batch and writes it in one transaction.
func (s *Store) Add(ctx context.Context, records ...*core.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateRecords(s.dimension, records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, r := range records {
			seq, err := s.idSeq.Next()
			if err != nil {
				return err
			}
			stored := storage.CloneRecord(r)
			stored.CreatedAt = now
			value, err := storage.MarshalVectorRecord(stored)
			if err != nil {
				return err
			}
			if err := tx.Set(makeRecordKey(seq), value); err != nil {
				return err
			}
			if err := tx.Set(makeIngestionKey(r.Metadata.IngestionID, seq), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		s.logger.Error("failed to add records", "count", len(records), "err", err)
		return storage.BackendError("add", err)
	}
	return nil
}

// SimilaritySearch scans all records in insertion order.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int) ([]*core.SearchResult, error) {
	if err := storage.ValidateQuery(s.dimension, query); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var records []*core.VectorRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	}, false)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, storage.BackendError("search", err)
	}

	return storage.RankTopK(query, records, k), nil
}

// DeleteByIngestionID removes the records listed under the ingestion index.
func (s *Store) DeleteByIngestionID(ctx context.Context, ingestionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	deleted := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialIngestionKey(ingestionID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var indexKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			// The prefix ends in 0x00, so ids sharing a prefix never match.
			if !bytes.HasPrefix(key, prefix) || len(key) != len(prefix)+8 {
				continue
			}
			indexKeys = append(indexKeys, key)
		}
		iter.Close()

		for _, key := range indexKeys {
			seq, err := seqFromKey(key)
			if err != nil {
				return err
			}
			if err := tx.Delete(makeRecordKey(seq)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			deleted++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.BackendError("delete", err)
	}
	s.logger.Debug("deleted ingestion", "ingestion_id", ingestionID, "records", deleted)
	return nil
}

// Reset drops every record and index key. The stored dimension is kept.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.backend.DropPrefix([]byte(vectorRecordPrefix), []byte(vectorIngestionPrefix)); err != nil {
		return storage.BackendError("reset", err)
	}
	return nil
}

// Close releases the ID sequence, and the backend when the store owns it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.idSeq.Release()
	if s.ownsBackend {
		err = errors.Join(err, s.backend.Close())
	}
	return err
}
