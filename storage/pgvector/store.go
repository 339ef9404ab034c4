// Package pgvector implements storage.VectorStore on PostgreSQL with the
// pgvector extension. The table must exist before New is called; see
// SchemaSQL and Migrate.
package pgvector

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/storage"
)

// Store is a pgvector backed vector store. Each call borrows a pooled
// connection for its own duration only.
type Store struct {
	cfg    Config
	table  string
	pool   *pgxpool.Pool
	logger *slog.Logger
	closed atomic.Bool
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger. Nil selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "pgvector-store")
		return nil
	}
}

// New connects to cfg.DSN and validates the table layout. A missing or
// mismatched table fails with *storage.SchemaError; nothing is created.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &Store{
		cfg:    cfg,
		table:  cfg.QualifiedTable(),
		logger: slog.Default().With("component", "pgvector-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, storage.BackendError("connect", err)
	}
	if err := validateSchema(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, err
	}
	s.pool = pool
	s.logger.Debug("opened vector table", "table", cfg.displayName(), "dimension", cfg.Dimension)
	return s, nil
}

// Dimension returns the vector column length.
func (s *Store) Dimension() int {
	return s.cfg.Dimension
}

// Add inserts the batch in one transaction.
func (s *Store) Add(ctx context.Context, records ...*core.VectorRecord) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if err := storage.ValidateRecords(s.cfg.Dimension, records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	insert := fmt.Sprintf(`INSERT INTO %s
		(vector, ingestion_id, chunk_id, chunk_index, chunk_strategy, chunk_text, source_metadata, provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.BackendError("begin", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		meta := r.Metadata.SourceMetadata
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(insert,
			pgv.NewVector(r.Vector),
			r.Metadata.IngestionID,
			r.Metadata.ChunkID,
			r.Metadata.ChunkIndex,
			r.Metadata.ChunkStrategy,
			r.Metadata.ChunkText,
			meta,
			r.Metadata.Provider,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return storage.BackendError("insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.BackendError("commit", err)
	}
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// SimilaritySearch orders by cosine distance, breaking ties by row id.
// A zero query has no direction, so every row scores 0 in insertion order.
// Zero-norm rows score 0 and rank with rows orthogonal to the query.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int) ([]*core.SearchResult, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	if err := storage.ValidateQuery(s.cfg.Dimension, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []*core.SearchResult{}, nil
	}

	const columns = `vector, ingestion_id, chunk_id, chunk_index, chunk_strategy,
		chunk_text, source_metadata, provider, created_at`
	var (
		rows pgx.Rows
		err  error
	)
	if isZero(query) {
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			`SELECT %s, 0::float8 FROM %s ORDER BY id LIMIT $1`, columns, s.table), k)
	} else {
		// A stored zero-norm row has NaN distance; it is ranked and scored
		// as similarity 0 rather than sorted after every number.
		const distance = `COALESCE(NULLIF(vector <=> $1, 'NaN'::float8), 1)`
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			`SELECT %s, 1 - %s FROM %s ORDER BY %s, id LIMIT $2`, columns, distance, s.table, distance),
			pgv.NewVector(query), k)
	}
	if err != nil {
		return nil, storage.BackendError("search", err)
	}
	defer rows.Close()

	results := []*core.SearchResult{}
	for rows.Next() {
		var (
			vec   pgv.Vector
			score float64
			rec   core.VectorRecord
		)
		err := rows.Scan(
			&vec,
			&rec.Metadata.IngestionID,
			&rec.Metadata.ChunkID,
			&rec.Metadata.ChunkIndex,
			&rec.Metadata.ChunkStrategy,
			&rec.Metadata.ChunkText,
			&rec.Metadata.SourceMetadata,
			&rec.Metadata.Provider,
			&rec.CreatedAt,
			&score,
		)
		if err != nil {
			return nil, storage.BackendError("scan", err)
		}
		rec.Vector = vec.Slice()
		results = append(results, &core.SearchResult{Record: &rec, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.BackendError("search", err)
	}
	return results, nil
}

// DeleteByIngestionID removes every row of ingestionID.
func (s *Store) DeleteByIngestionID(ctx context.Context, ingestionID string) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE ingestion_id = $1", s.table), ingestionID)
	if err != nil {
		return storage.BackendError("delete", err)
	}
	s.logger.Debug("deleted ingestion", "ingestion_id", ingestionID, "records", tag.RowsAffected())
	return nil
}

// Reset truncates the table.
func (s *Store) Reset(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", s.table)); err != nil {
		return storage.BackendError("reset", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.pool.Close()
	return nil
}

