package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vectorize/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderOpenAI),
		ai.WithHost(host),
		ai.WithModel("text-embedding-3-small"),
		ai.WithDimension(2),
	)
}

func TestEmbedder_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	e, err := NewEmbedder(testConfig(server.URL))
	require.NoError(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrEmbedding))
	assert.Contains(t, err.Error(), "embedding failed: openai: error embedding batch")
	assert.Contains(t, err.Error(), "500: boom")

	_, err = e.EmbedText(context.Background(), "a")
	assert.ErrorIs(t, err, ai.ErrEmbedding)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer none", r.Header.Get("Authorization"))
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "text-embedding-3-small", req.Model)

		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			data[i] = item{Embedding: []float32{float32(len(text)), 1}, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	}))
	defer server.Close()

	e, err := NewEmbedder(testConfig(server.URL))
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOpenAI, e.Name())

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "bb\nbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {5, 1}}, vectors)
	assert.Equal(t, int32(1), requests.Load())

	vector, err := e.EmbedText(context.Background(), "ccc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, vector)
}
