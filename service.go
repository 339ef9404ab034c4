// Package vectorize wires extraction, OCR, chunking, embedding, storage and
// status tracking into one ingestion and retrieval service.
package vectorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poiesic/vectorize/ai"
	"github.com/poiesic/vectorize/chunking"
	"github.com/poiesic/vectorize/config"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/extract"
	"github.com/poiesic/vectorize/ingestion"
	"github.com/poiesic/vectorize/ocr"
	"github.com/poiesic/vectorize/search"
	"github.com/poiesic/vectorize/status"
	"github.com/poiesic/vectorize/storage"
)

// Source types recorded on status records.
const (
	SourceText = "text"
	SourceFile = "file"
)

// IngestOptions tune a single ingestion.
type IngestOptions struct {
	// IngestionID names the ingestion. Empty generates a UUID. Passing the
	// id of a failed ingestion retries it.
	IngestionID string
	// SourceName is recorded on the status record for text ingestions.
	SourceName string
	// OCREngine overrides the configured default engine.
	OCREngine string
}

// IngestResult describes a successful ingestion.
type IngestResult struct {
	IngestionID string
	Chunks      []core.Chunk
	// OCR holds one result per image artifact. Empty when OCR did not run.
	OCR []ocr.Result
}

// Service is the ingestion and retrieval facade.
type Service struct {
	embedder   ai.Embedder
	store      storage.VectorStore
	tracker    status.Tracker
	pipeline   *ingestion.Pipeline
	searcher   *search.Searcher
	extractors *extract.Registry
	ocr        *ocr.Registry
	ocrWorkers int
	logger     *slog.Logger

	// closers release what the service opened itself, in reverse order.
	closers []func() error
}

// Option configures a Service. Components passed in options are owned by
// the caller and are not closed by Service.Close.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithEmbedder uses embedder instead of building one from configuration.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(s *Service) error {
		s.embedder = embedder
		return nil
	}
}

// WithStore uses store instead of opening one from configuration.
func WithStore(store storage.VectorStore) Option {
	return func(s *Service) error {
		s.store = store
		return nil
	}
}

// WithTracker uses tracker instead of opening one from configuration.
func WithTracker(tracker status.Tracker) Option {
	return func(s *Service) error {
		s.tracker = tracker
		return nil
	}
}

// WithOCREngines replaces the configured OCR engines. The first is the default.
func WithOCREngines(engines ...ocr.Engine) Option {
	return func(s *Service) error {
		registry, err := ocr.NewRegistry(engines...)
		if err != nil {
			return err
		}
		s.ocr = registry
		return nil
	}
}

// New builds a service from cfg. A nil cfg uses config.Default().
func New(ctx context.Context, cfg *config.Config, opts ...Option) (svc *Service, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		extractors: extract.NewRegistry(),
		ocrWorkers: cfg.OCR.Workers,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.embedder == nil {
		embedder, err := NewEmbedder(&cfg.Embedding)
		if err != nil {
			return nil, err
		}
		s.embedder = embedder
		if r, ok := embedder.(interface{ Release() }); ok {
			s.closers = append(s.closers, func() error { r.Release(); return nil })
		}
	}
	if s.store == nil {
		store, err := NewStore(ctx, cfg.Store, s.embedder.Dimension(), s.logger)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.closers = append(s.closers, store.Close)
	}
	if s.tracker == nil {
		tracker, err := NewTracker(cfg.Status)
		if err != nil {
			return nil, err
		}
		s.tracker = tracker
		s.closers = append(s.closers, tracker.Close)
	}
	if s.ocr == nil {
		registry, err := NewOCRRegistry(cfg.OCR, s.logger)
		if err != nil {
			return nil, err
		}
		s.ocr = registry
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithStatusReporter(claimedReporter{s.tracker}),
		ingestion.WithLogger(s.logger),
	}
	if cfg.Chunking.Chunker != "" {
		chunker, err := chunking.Lookup(cfg.Chunking.Chunker)
		if err != nil {
			return nil, err
		}
		pipelineOpts = append(pipelineOpts, ingestion.WithChunker(chunker))
	}
	s.pipeline, err = ingestion.NewPipeline(ingestion.NonEmptyValidator{}, s.embedder, s.store, pipelineOpts...)
	if err != nil {
		return nil, err
	}
	s.searcher, err = search.NewSearcher(s.embedder, s.store, search.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.logger = s.logger.With("component", "service")
	return s, nil
}

// Close releases everything the service opened.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Store returns the underlying vector store.
func (s *Service) Store() storage.VectorStore {
	return s.store
}

// begin creates the status record for an ingestion and claims it. An
// existing pending or failed ingestion is resumed after its partial vectors
// are removed. The claim is atomic, so concurrent resumes of one id cannot
// both run.
func (s *Service) begin(ctx context.Context, rec status.Record) (string, error) {
	if rec.IngestionID == "" {
		rec.IngestionID = uuid.NewString()
	}
	id := rec.IngestionID
	err := s.tracker.Create(ctx, rec)
	if err == nil {
		if err := s.tracker.Claim(ctx, id, status.StatePending); err != nil {
			return "", err
		}
		return id, nil
	}
	if !errors.Is(err, status.ErrExists) {
		return "", err
	}

	if err := s.tracker.Claim(ctx, id, status.StatePending, status.StateFailed); err != nil {
		if errors.Is(err, status.ErrInvalidTransition) {
			return "", fmt.Errorf("%w: %w", status.ErrExists, err)
		}
		return "", err
	}
	s.logger.Info("resuming ingestion", "ingestion_id", id)
	if err := s.store.DeleteByIngestionID(ctx, id); err != nil {
		return "", s.abort(ctx, id, err)
	}
	return id, nil
}

// abort records a failure that happened before the pipeline started. The
// ingestion is already claimed.
func (s *Service) abort(ctx context.Context, id string, cause error) error {
	if err := s.tracker.MarkFailed(ctx, id, cause.Error()); err != nil {
		s.logger.Warn("failed to report status", "ingestion_id", id, "err", err)
	}
	s.logger.Error("ingestion failed before chunking", "ingestion_id", id, "err", cause)
	return cause
}

// claimedReporter forwards pipeline transitions to the tracker. The service
// claims an ingestion before the pipeline runs, so MarkRunning is a no-op.
type claimedReporter struct {
	status.Tracker
}

func (claimedReporter) MarkRunning(context.Context, string) error { return nil }

// IngestText chunks, embeds and stores flat text.
func (s *Service) IngestText(ctx context.Context, text string, opts IngestOptions) (*IngestResult, error) {
	id, err := s.begin(ctx, status.Record{IngestionID: opts.IngestionID, SourceType: SourceText, SourceName: opts.SourceName})
	if err != nil {
		return nil, err
	}
	chunks, err := s.pipeline.Run(ctx, id, text)
	if err != nil {
		return nil, err
	}
	return &IngestResult{IngestionID: id, Chunks: chunks}, nil
}

// IngestDocument extracts artifacts from data, recovers image text with OCR
// and ingests the result. An empty contentType is guessed from sourceName.
func (s *Service) IngestDocument(ctx context.Context, data []byte, sourceName, contentType string, opts IngestOptions) (*IngestResult, error) {
	id, err := s.begin(ctx, status.Record{IngestionID: opts.IngestionID, SourceType: SourceFile, SourceName: sourceName})
	if err != nil {
		return nil, err
	}
	return s.ingestDocument(ctx, id, data, sourceName, contentType, opts.OCREngine)
}

// Reingest replaces the vectors of an ingestion with a fresh run over data.
// Unknown ids are created; running ingestions are rejected.
func (s *Service) Reingest(ctx context.Context, ingestionID string, data []byte, sourceName, contentType string, opts IngestOptions) (*IngestResult, error) {
	if ingestionID == "" {
		return nil, ingestion.ErrIngestionIDRequired
	}
	err := s.tracker.Create(ctx, status.Record{IngestionID: ingestionID, SourceType: SourceFile, SourceName: sourceName})
	if err != nil && !errors.Is(err, status.ErrExists) {
		return nil, err
	}
	err = s.tracker.Claim(ctx, ingestionID, status.StatePending, status.StateCompleted, status.StateFailed)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteByIngestionID(ctx, ingestionID); err != nil {
		return nil, s.abort(ctx, ingestionID, err)
	}
	s.logger.Info("reingesting", "ingestion_id", ingestionID, "source", sourceName)
	return s.ingestDocument(ctx, ingestionID, data, sourceName, contentType, opts.OCREngine)
}

func (s *Service) ingestDocument(ctx context.Context, id string, data []byte, sourceName, contentType, engine string) (*IngestResult, error) {
	artifacts, err := s.extractors.Extract(ctx, data, sourceName, contentType)
	if err != nil {
		return nil, s.abort(ctx, id, err)
	}

	artifacts, results, err := s.recognize(ctx, artifacts, engine)
	if err != nil {
		return nil, s.abort(ctx, id, err)
	}
	if !hasText(artifacts) {
		return nil, s.abort(ctx, id, fmt.Errorf("%w in %s", ErrNoExtractableText, sourceName))
	}

	chunks, err := s.pipeline.RunArtifacts(ctx, id, artifacts)
	if err != nil {
		return nil, err
	}
	return &IngestResult{IngestionID: id, Chunks: chunks, OCR: results}, nil
}

// recognize runs OCR over image artifacts. Without configured engines and
// without an explicit engine name, artifacts pass through unchanged.
func (s *Service) recognize(ctx context.Context, artifacts []core.Artifact, name string) ([]core.Artifact, []ocr.Result, error) {
	images := 0
	for i := range artifacts {
		if artifacts[i].Type == core.ArtifactImage {
			images++
		}
	}
	if images == 0 {
		return artifacts, nil, nil
	}
	if name == "" && len(s.ocr.Names()) == 0 {
		s.logger.Debug("no OCR engine configured, skipping images", "images", images)
		return artifacts, nil, nil
	}

	engine, err := s.ocr.Get(name)
	if err != nil {
		return nil, nil, err
	}
	enricher, err := ocr.NewEnricher(engine, ocr.WithWorkers(s.ocrWorkers), ocr.WithLogger(s.logger))
	if err != nil {
		return nil, nil, err
	}
	defer enricher.Release()
	return enricher.Enrich(ctx, artifacts)
}

func hasText(artifacts []core.Artifact) bool {
	for i := range artifacts {
		if artifacts[i].Type == core.ArtifactText && artifacts[i].HasText() {
			return true
		}
	}
	return false
}

// Search returns up to k chunks most similar to query.
func (s *Service) Search(ctx context.Context, query string, k int) ([]*search.Hit, error) {
	return s.searcher.Search(ctx, query, k)
}

// Delete removes every vector of an ingestion. The status record is kept.
func (s *Service) Delete(ctx context.Context, ingestionID string) error {
	if ingestionID == "" {
		return ingestion.ErrIngestionIDRequired
	}
	return s.store.DeleteByIngestionID(ctx, ingestionID)
}

// Reset removes every vector.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

// Status returns the status record of an ingestion.
func (s *Service) Status(ctx context.Context, ingestionID string) (*status.Record, error) {
	return s.tracker.Get(ctx, ingestionID)
}

// ListStatus returns every status record, most recent first.
func (s *Service) ListStatus(ctx context.Context) ([]*status.Record, error) {
	return s.tracker.List(ctx)
}
