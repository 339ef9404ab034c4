package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/vectorize/ai"
	"github.com/poiesic/vectorize/assembly"
	"github.com/poiesic/vectorize/chunking"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/graph"
	"github.com/poiesic/vectorize/storage"
)

// StatusReporter receives lifecycle transitions. status.Tracker satisfies it.
type StatusReporter interface {
	MarkRunning(ctx context.Context, ingestionID string) error
	MarkCompleted(ctx context.Context, ingestionID string) error
	MarkFailed(ctx context.Context, ingestionID string, reason string) error
}

// Pipeline runs ingestions against one embedder and one store.
// It holds no per-ingestion state and is safe for concurrent use.
type Pipeline struct {
	validator    Validator
	embedder     ai.Embedder
	store        storage.VectorStore
	chunker      chunking.Chunker
	selector     *chunking.Selector
	assembler    *assembly.Assembler
	graphBuilder *graph.Builder
	reporter     StatusReporter
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunker forces one chunker for flat text, run with empty params so
// the chunker's defaults apply.
func WithChunker(c chunking.Chunker) Option {
	return func(p *Pipeline) error {
		p.chunker = c
		return nil
	}
}

// WithSelector replaces the strategy selector used for flat text and,
// unless WithAssembler is also given, for artifacts.
func WithSelector(s *chunking.Selector) Option {
	return func(p *Pipeline) error {
		p.selector = s
		return nil
	}
}

// WithAssembler replaces the chunk assembler used for artifacts.
func WithAssembler(a *assembly.Assembler) Option {
	return func(p *Pipeline) error {
		p.assembler = a
		return nil
	}
}

// WithGraphBuilder replaces the artifact graph builder.
func WithGraphBuilder(b *graph.Builder) Option {
	return func(p *Pipeline) error {
		p.graphBuilder = b
		return nil
	}
}

// WithStatusReporter reports running, completed and failed transitions.
func WithStatusReporter(r StatusReporter) Option {
	return func(p *Pipeline) error {
		p.reporter = r
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline. The embedder's dimension must match the store's.
func NewPipeline(validator Validator, embedder ai.Embedder, store storage.VectorStore, opts ...Option) (*Pipeline, error) {
	if validator == nil {
		return nil, ErrValidatorRequired
	}
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

	p := &Pipeline{
		validator: validator,
		embedder:  embedder,
		store:     store,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	if p.selector == nil {
		p.selector = chunking.DefaultSelector()
	}
	if p.assembler == nil {
		p.assembler = assembly.New(p.selector, p.logger)
	}
	if p.graphBuilder == nil {
		b, err := graph.NewBuilder(graph.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.graphBuilder = b
	}
	return p, nil
}

// Run ingests flat text and returns the persisted chunks.
func (p *Pipeline) Run(ctx context.Context, ingestionID, text string) ([]core.Chunk, error) {
	return p.run(ctx, ingestionID, text, func() ([]core.Chunk, error) {
		return p.chunkText(text)
	})
}

// RunArtifacts ingests extracted artifacts. The validator sees the text of
// the text artifacts joined by blank lines.
func (p *Pipeline) RunArtifacts(ctx context.Context, ingestionID string, artifacts []core.Artifact) ([]core.Chunk, error) {
	var texts []string
	for i := range artifacts {
		if artifacts[i].Type == core.ArtifactText && artifacts[i].HasText() {
			texts = append(texts, artifacts[i].Text)
		}
	}
	return p.run(ctx, ingestionID, strings.Join(texts, "\n\n"), func() ([]core.Chunk, error) {
		return p.chunkArtifacts(artifacts)
	})
}

func (p *Pipeline) chunkText(text string) ([]core.Chunk, error) {
	chunker, params := p.chunker, chunking.Params{}
	if chunker == nil {
		chunker, params = p.selector.ChooseStrategy(text)
	}
	chunks, err := chunker.Chunk(text, params)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		if err := chunks[i].Metadata.Require(core.StrategyKeys...); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunks[i].ID, err)
		}
	}
	p.logger.Debug("chunked text", "chunker", chunker.Name(), "chunks", len(chunks))
	return chunks, nil
}

func (p *Pipeline) chunkArtifacts(artifacts []core.Artifact) ([]core.Chunk, error) {
	g, err := p.graphBuilder.Build(artifacts)
	if err != nil {
		return nil, err
	}
	chunks, err := p.assembler.Assemble(g)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		if err := chunks[i].Metadata.Require(core.AssembledKeys...); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunks[i].ID, err)
		}
	}
	p.logger.Debug("assembled artifacts", "artifacts", g.Len(), "edges", len(g.Edges()), "chunks", len(chunks))
	return chunks, nil
}

func (p *Pipeline) run(ctx context.Context, ingestionID, text string, chunk func() ([]core.Chunk, error)) ([]core.Chunk, error) {
	if ingestionID == "" {
		return nil, ErrIngestionIDRequired
	}
	logger := p.logger.With("ingestion_id", ingestionID)
	p.report(logger, func(r StatusReporter) error { return r.MarkRunning(ctx, ingestionID) })

	fail := func(stage Stage, err error) ([]core.Chunk, error) {
		stageErr := &StageError{Stage: stage, IngestionID: ingestionID, Err: err}
		logger.Error("ingestion failed", "stage", stage, "err", err)
		p.report(logger, func(r StatusReporter) error { return r.MarkFailed(ctx, ingestionID, stageErr.Error()) })
		return nil, stageErr
	}

	if err := p.validator.Validate(ctx, text); err != nil {
		return fail(StageValidate, err)
	}

	chunks, err := chunk()
	if err != nil {
		return fail(StageChunk, err)
	}

	vectors, err := ai.EmbedChunks(ctx, p.embedder, chunks)
	if err != nil {
		return fail(StageEmbed, err)
	}

	if _, err := storage.Persist(ctx, p.store, chunks, vectors, ingestionID, p.embedder.Name()); err != nil {
		return fail(StagePersist, err)
	}

	logger.Info("ingestion completed", "chunks", len(chunks), "provider", p.embedder.Name())
	p.report(logger, func(r StatusReporter) error { return r.MarkCompleted(ctx, ingestionID) })
	return chunks, nil
}

// report forwards a transition. Reporter failures are logged; they never
// change the ingestion's outcome.
func (p *Pipeline) report(logger *slog.Logger, fn func(StatusReporter) error) {
	if p.reporter == nil {
		return
	}
	if err := fn(p.reporter); err != nil {
		logger.Warn("failed to report status", "err", err)
	}
}
