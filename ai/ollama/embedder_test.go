package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vectorize/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

func testConfig(host string, batch int) *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderOllama),
		ai.WithHost(host),
		ai.WithModel("nomic-embed-text"),
		ai.WithDimension(2),
		ai.WithBatchSize(batch),
	)
}

func TestEmbedder_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	e, err := NewEmbedder(testConfig(server.URL, 0))
	require.NoError(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrEmbedding))
	assert.Equal(t, "embedding failed: ollama: error embedding batch: boom", err.Error())

	_, err = e.EmbedText(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrEmbedding)
	assert.Contains(t, err.Error(), "boom")
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "nomic-embed-text", req.Model)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{float32(len(req.Input)), 1}},
		})
	}))
	defer server.Close()

	e, err := NewEmbedder(testConfig(server.URL+"/v1", 0))
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOllama, e.Name())
	assert.Equal(t, 2, e.Dimension())

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 1}, {3, 1}}, vectors)
	assert.Equal(t, int32(3), requests.Load())
}

func TestEmbedder_BatchSize(t *testing.T) {
	testCases := []struct {
		name       string
		configured int
		want       int
	}{
		{"disabled hands every text over at once", 0, math.MaxInt32},
		{"configured size is kept", 16, 16},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := newEmbedder(testConfig("http://localhost:11434", tc.configured))
			require.NoError(t, err)
			impl, ok := e.embedder.(*embeddings.EmbedderImpl)
			require.True(t, ok)
			assert.Equal(t, tc.want, impl.BatchSize)
		})
	}
}
