// Package mock provides a deterministic, offline implementation of ai.Embedder.
//
// MockEmbedder serves two roles: it is the reference embedder used when no
// remote provider is configured, and it is a test double whose behavior can
// be replaced per test.
//
// # Usage in Tests
//
//	// Default deterministic behavior
//	embedder := mock.NewMockEmbedder(mock.WithDimension(3))
//	vec, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("backend down")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// Identical input always yields an identical vector. Texts that share words
// produce vectors with positive cosine similarity.
package mock
