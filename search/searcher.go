package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/vectorize/ai"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/storage"
)

// Hit is a search result with its verbatim match flag.
type Hit struct {
	*core.SearchResult
	// Verbatim is true when every significant query word appears in the chunk text.
	Verbatim bool
}

// Searcher runs similarity searches over ingested chunks.
type Searcher struct {
	embedder     ai.Embedder
	store        storage.VectorStore
	requiredKeys []string
	strict       bool
	minScore     float32
	logger       *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRequiredKeys replaces the source metadata keys every result must carry.
// Default is core.StrategyKeys.
func WithRequiredKeys(keys ...string) Option {
	return func(s *Searcher) error {
		s.requiredKeys = append([]string(nil), keys...)
		return nil
	}
}

// WithStrict fails the search on the first result missing a required key
// instead of dropping it.
func WithStrict(strict bool) Option {
	return func(s *Searcher) error {
		s.strict = strict
		return nil
	}
}

// WithMinScore drops results scoring below min.
func WithMinScore(min float32) Option {
	return func(s *Searcher) error {
		if min < -1 || min > 1 {
			return fmt.Errorf("minimum score %v outside [-1, 1]", min)
		}
		s.minScore = min
		return nil
	}
}

// NewSearcher creates a new searcher. The embedder's dimension must match the store's.
func NewSearcher(embedder ai.Embedder, store storage.VectorStore, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder.Dimension() != store.Dimension() {
		return nil, fmt.Errorf("embedder %s: %w", embedder.Name(),
			&storage.DimensionError{Expected: store.Dimension(), Got: embedder.Dimension()})
	}

	s := &Searcher{
		embedder:     embedder,
		store:        store,
		requiredKeys: core.StrategyKeys,
		minScore:     -1,
		logger:       slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search returns up to k hits for query, most similar first.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]*Hit, error) {
	return s.SearchWithMonitor(ctx, query, k, nil)
}

// SearchWithMonitor searches with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, k int, monitor SearchMonitor) ([]*Hit, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query)
	if k <= 0 {
		monitor.Finish([]*Hit{})
		return []*Hit{}, nil
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(embedding)

	results, err := s.store.SimilaritySearch(ctx, embedding, k)
	if err != nil {
		s.logger.Error("error querying for similar records", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(results)

	hits := make([]*Hit, 0, len(results))
	for _, result := range results {
		if result.Score < s.minScore {
			continue
		}
		if err := s.checkMetadata(result); err != nil {
			if s.strict {
				return nil, err
			}
			s.logger.Warn("dropping result with incomplete metadata",
				"ingestion_id", result.Record.Metadata.IngestionID,
				"chunk_id", result.Record.Metadata.ChunkID,
				"err", err)
			monitor.Dropped(result, err)
			continue
		}
		hits = append(hits, &Hit{
			SearchResult: result,
			Verbatim:     containsAllQueryWords(result.Record.Metadata.ChunkText, query),
		})
	}
	monitor.Finish(hits)

	return hits, nil
}

func (s *Searcher) checkMetadata(result *core.SearchResult) error {
	var md core.Metadata
	for k, v := range result.Record.Metadata.SourceMetadata {
		md.Set(k, v)
	}
	if err := md.Require(s.requiredKeys...); err != nil {
		return fmt.Errorf("chunk %s of %s: %w", result.Record.Metadata.ChunkID, result.Record.Metadata.IngestionID, err)
	}
	return nil
}
