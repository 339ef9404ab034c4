package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/poiesic/vectorize/ai"
)

// DefaultDimension is the vector length used when none is configured.
const DefaultDimension = 384

// MockEmbedder is a deterministic, offline ai.Embedder.
// By default it hashes lower-cased word tokens into signed buckets and
// L2-normalises the result, so texts sharing words score as similar.
// Behavior can be replaced via the function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	name      string
	dimension int
	callCount atomic.Int64
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// Option configures a MockEmbedder.
type Option func(*MockEmbedder)

// WithDimension sets the vector length.
func WithDimension(dim int) Option {
	return func(m *MockEmbedder) {
		if dim > 0 {
			m.dimension = dim
		}
	}
}

// WithName overrides the provider name reported by Name.
func WithName(name string) Option {
	return func(m *MockEmbedder) {
		m.name = name
	}
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder(opts ...Option) *MockEmbedder {
	m := &MockEmbedder{name: ai.ProviderMock, dimension: DefaultDimension}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockEmbedder) Name() string   { return m.name }
func (m *MockEmbedder) Dimension() int { return m.dimension }

// EmbedText generates a deterministic embedding for text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Vector(text, m.dimension), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = Vector(text, m.dimension)
	}
	return embeddings, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// Vector is the default embedding: signed feature hashing of word tokens,
// L2-normalised. Text without word tokens falls back to a seeded sequence
// so that every input yields a non-zero vector.
func Vector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return generateDeterministicVector(text, dim)
	}

	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(dim))
		if sum>>63 == 0 {
			vector[idx]++
		} else {
			vector[idx]--
		}
	}
	if !normalize(vector) {
		// Every token cancelled out.
		return generateDeterministicVector(text, dim)
	}
	return vector
}

// generateDeterministicVector creates a deterministic embedding vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}
	normalize(vector)
	return vector
}

// normalize scales v to unit length in place. It reports false for a zero vector.
func normalize(v []float32) bool {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return false
	}
	inv := float32(1 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
	return true
}
