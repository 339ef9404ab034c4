// Package qdrant implements storage.VectorStore on a qdrant collection.
// The collection must already exist with the configured size and cosine
// distance; see Migrate.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/storage"
	"github.com/qdrant/go-client/qdrant"
)

// Store is a qdrant backed vector store.
type Store struct {
	cfg    Config
	client *qdrant.Client
	logger *slog.Logger
	closed atomic.Bool

	// order gives every point a position so ties can be broken by insertion.
	order atomic.Int64
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
		s.logger = logger.With("component", "qdrant-store")
		return nil
	}
}

func newClient(cfg Config) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, storage.BackendError("connect", err)
	}
	return client, nil
}

// New connects and validates the collection's vector parameters.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &Store{
		cfg:    cfg,
		logger: slog.Default().With("component", "qdrant-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := validateCollection(ctx, client, cfg); err != nil {
		client.Close()
		return nil, err
	}
	s.client = client
	s.order.Store(time.Now().UnixNano())
	return s, nil
}

func expectedShape(cfg Config) string {
	return fmt.Sprintf("vectors of size %d with cosine distance", cfg.Dimension)
}

func validateCollection(ctx context.Context, client *qdrant.Client, cfg Config) error {
	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return storage.BackendError("inspect collection", err)
	}
	if !exists {
		return &storage.SchemaError{Table: cfg.Collection, Expected: expectedShape(cfg), Detail: "collection does not exist"}
	}
	info, err := client.GetCollectionInfo(ctx, cfg.Collection)
	if err != nil {
		return storage.BackendError("inspect collection", err)
	}
	return checkVectorParams(cfg, info.GetConfig().GetParams().GetVectorsConfig().GetParams())
}

func checkVectorParams(cfg Config, params *qdrant.VectorParams) error {
	if params == nil {
		return &storage.SchemaError{Table: cfg.Collection, Expected: expectedShape(cfg), Detail: "collection has no single unnamed vector"}
	}
	if params.GetSize() != uint64(cfg.Dimension) || params.GetDistance() != qdrant.Distance_Cosine {
		return &storage.SchemaError{
			Table:    cfg.Collection,
			Expected: expectedShape(cfg),
			Detail:   fmt.Sprintf("collection has size %d with %s distance", params.GetSize(), params.GetDistance()),
		}
	}
	return nil
}

// Migrate creates the collection and its payload indexes when missing.
func Migrate(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return storage.BackendError("inspect collection", err)
	}
	if exists {
		return validateCollection(ctx, client, cfg)
	}
	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: cfg.Collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(cfg.Dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return storage.BackendError("create collection", err)
	}

	indexes := map[string]qdrant.FieldType{
		fieldIngestionID: qdrant.FieldType_FieldTypeKeyword,
		fieldInsertOrder: qdrant.FieldType_FieldTypeInteger,
	}
	for field, typ := range indexes {
		_, err := client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: cfg.Collection,
			Wait:           qdrant.PtrOf(true),
			FieldName:      field,
			FieldType:      qdrant.PtrOf(typ),
		})
		if err != nil {
			return storage.BackendError("create index "+field, err)
		}
	}
	return nil
}

// Dimension returns the collection's vector size.
func (s *Store) Dimension() int {
	return s.cfg.Dimension
}

// Add upserts the batch in one request. Point ids derive from ingestion and
// chunk ids, so re-adding a chunk replaces it.
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

	now := time.Now().UTC()
	base := s.order.Add(int64(len(records))) - int64(len(records))
	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload, err := buildPayload(r, now, base+int64(i))
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrInvalidRecord, err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(r.Metadata)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return storage.BackendError("upsert", err)
	}
	s.logger.Debug("upserted points", "collection", s.cfg.Collection, "count", len(points))
	return nil
}

type rankedPoint struct {
	result *core.SearchResult
	order  int64
}

// SimilaritySearch runs a native nearest-neighbour query. Returned records
// carry no vector.
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

	var ranked []rankedPoint
	if isZero(query) {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Limit:          qdrant.PtrOf(uint32(k)),
			WithPayload:    qdrant.NewWithPayload(true),
			OrderBy:        &qdrant.OrderBy{Key: fieldInsertOrder},
		})
		if err != nil {
			return nil, storage.BackendError("scroll", err)
		}
		for _, p := range points {
			rec, order := recordFromPayload(p.GetPayload())
			ranked = append(ranked, rankedPoint{&core.SearchResult{Record: rec}, order})
		}
	} else {
		points, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.cfg.Collection,
			Query:          qdrant.NewQuery(query...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, storage.BackendError("query", err)
		}
		for _, p := range points {
			rec, order := recordFromPayload(p.GetPayload())
			ranked = append(ranked, rankedPoint{&core.SearchResult{Record: rec, Score: p.GetScore()}, order})
		}
	}

	return sortRanked(ranked), nil
}

// sortRanked orders by descending score, then insertion order.
func sortRanked(ranked []rankedPoint) []*core.SearchResult {
	slices.SortStableFunc(ranked, func(a, b rankedPoint) int {
		switch {
		case a.result.Score > b.result.Score:
			return -1
		case a.result.Score < b.result.Score:
			return 1
		case a.order < b.order:
			return -1
		case a.order > b.order:
			return 1
		}
		return 0
	})
	out := make([]*core.SearchResult, len(ranked))
	for i, r := range ranked {
		out[i] = r.result
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func (s *Store) deleteWhere(ctx context.Context, op string, filter *qdrant.Filter) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return storage.BackendError(op, err)
	}
	return nil
}

// DeleteByIngestionID removes points whose payload carries ingestionID.
func (s *Store) DeleteByIngestionID(ctx context.Context, ingestionID string) error {
	return s.deleteWhere(ctx, "delete", &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(fieldIngestionID, ingestionID)},
	})
}

// Reset removes every point. The collection itself is kept.
func (s *Store) Reset(ctx context.Context) error {
	return s.deleteWhere(ctx, "reset", &qdrant.Filter{})
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}
