package vectorize

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/vectorize/ai"
	"github.com/poiesic/vectorize/ai/mock"
	"github.com/poiesic/vectorize/ai/ollama"
	"github.com/poiesic/vectorize/ai/openai"
	"github.com/poiesic/vectorize/config"
	"github.com/poiesic/vectorize/ocr"
	"github.com/poiesic/vectorize/status"
	"github.com/poiesic/vectorize/status/sqlite"
	"github.com/poiesic/vectorize/storage"
	"github.com/poiesic/vectorize/storage/badger"
	"github.com/poiesic/vectorize/storage/memory"
	"github.com/poiesic/vectorize/storage/pgvector"
	"github.com/poiesic/vectorize/storage/qdrant"
)

// NewEmbedder creates the embedder named by cfg.Provider. Remote providers
// are wrapped in an ai.BatchEmbedder when cfg.BatchSize is positive.
func NewEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var inner ai.Embedder
	var err error
	switch cfg.Provider {
	case ai.ProviderMock:
		return mock.NewMockEmbedder(mock.WithDimension(cfg.Dimension)), nil
	case ai.ProviderOpenAI:
		inner, err = openai.NewEmbedder(cfg)
	case ai.ProviderOllama:
		inner, err = ollama.NewEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		return inner, nil
	}
	batched, err := ai.NewBatchEmbedderFromConfig(inner, cfg)
	if err != nil {
		return nil, err
	}
	return batched, nil
}

// NewStore opens the vector store selected by cfg. Durable stores are
// validated against dimension; they are never migrated here.
func NewStore(ctx context.Context, cfg config.StoreConfig, dimension int, logger *slog.Logger) (storage.VectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Type {
	case "", config.StoreMemory:
		return memory.New(dimension), nil
	case config.StoreBadger:
		return badger.Open(cfg.Path, dimension)
	case config.StorePgvector:
		if cfg.Pgvector == nil {
			return nil, fmt.Errorf("%w: pgvector section missing", pgvector.ErrInvalidConfig)
		}
		pc := *cfg.Pgvector
		if pc.Dimension == 0 {
			pc.Dimension = dimension
		}
		store, err := pgvector.New(ctx, pc, pgvector.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreQdrant:
		qc := qdrant.Config{}
		if cfg.Qdrant != nil {
			qc = *cfg.Qdrant
		}
		if qc.Dimension == 0 {
			qc.Dimension = dimension
		}
		store, err := qdrant.New(ctx, qc, qdrant.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Type)
	}
}

// NewTracker opens the status tracker selected by cfg.
func NewTracker(cfg config.StatusConfig) (status.Tracker, error) {
	switch cfg.Type {
	case "", config.StatusMemory:
		return status.NewMemory(), nil
	case config.StatusSQLite:
		t, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTracker, cfg.Type)
	}
}

// NewOCRRegistry builds the engines listed in cfg. An empty config yields an
// empty registry, which disables OCR.
func NewOCRRegistry(cfg config.OCRConfig, logger *slog.Logger) (*ocr.Registry, error) {
	names := make([]string, 0, len(cfg.Engines))
	for name := range cfg.Engines {
		names = append(names, name)
	}
	slices.Sort(names)

	engines := make([]ocr.Engine, 0, len(names))
	for _, name := range names {
		ec := cfg.Engines[name]
		args := ec.Args
		if len(args) == 0 && ec.Command == "tesseract" {
			args = ocr.TesseractArgs(ec.Language)
		}
		engines = append(engines, ocr.NewCommand(name, ec.Command, args))
	}

	registry, err := ocr.NewRegistry(engines...)
	if err != nil {
		return nil, err
	}
	if cfg.Default != "" {
		if err := registry.SetDefault(cfg.Default); err != nil {
			return nil, err
		}
	}
	if logger != nil && len(names) > 0 {
		logger.Debug("configured OCR engines", "engines", registry.Names(), "default", cfg.Default)
	}
	return registry, nil
}
