// Package ollama implements ai.Embedder against a native Ollama server.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/poiesic/vectorize/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultDimension is the output size of nomic-embed-text.
const DefaultDimension = 768

// Embedder implements ai.Embedder using Ollama's embedding endpoint.
type Embedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
	logger    *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := ollama.New(
		ollama.WithServerURL(config.Host),
		ollama.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(batchSize(config.BatchSize)))
	if err != nil {
		return nil, err
	}

	dim := config.Dimension
	if dim <= 0 {
		dim = DefaultDimension
	}

	return &Embedder{
		embedder:  embedder,
		model:     config.Model,
		dimension: dim,
		logger:    slog.Default().With("component", "ollama-embedder", "model", config.Model),
	}, nil
}

// batchSize bounds how many texts langchaingo hands the client per call.
// Batching is done by ai.BatchEmbedder, so a disabled size means one call
// per EmbedTexts rather than one call per text.
func batchSize(configured int) int {
	if configured <= 0 {
		return math.MaxInt32
	}
	return configured
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

func (e *Embedder) Name() string   { return ai.ProviderOllama }
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, ai.BackendError(ai.ProviderOllama, err)
	}
	return vec, nil
}

// EmbedTexts generates vector embeddings for multiple text strings.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, ai.BackendError(ai.ProviderOllama, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %d vectors for %d texts", ai.ErrCountMismatch, len(vectors), len(texts))
	}
	return vectors, nil
}
