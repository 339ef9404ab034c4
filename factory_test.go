package vectorize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/vectorize/ai"
	"github.com/poiesic/vectorize/ai/mock"
	"github.com/poiesic/vectorize/config"
	"github.com/poiesic/vectorize/ocr"
	"github.com/poiesic/vectorize/status"
	"github.com/poiesic/vectorize/storage/memory"
	"github.com/poiesic/vectorize/storage/pgvector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	t.Run("nil config is the mock", func(t *testing.T) {
		e, err := NewEmbedder(nil)
		require.NoError(t, err)
		assert.IsType(t, &mock.MockEmbedder{}, e)
		assert.Equal(t, 768, e.Dimension())
	})

	t.Run("mock honours dimension", func(t *testing.T) {
		e, err := NewEmbedder(ai.NewConfig(ai.WithDimension(12)))
		require.NoError(t, err)
		assert.Equal(t, ai.ProviderMock, e.Name())
		assert.Equal(t, 12, e.Dimension())
	})

	for _, provider := range []string{ai.ProviderOpenAI, ai.ProviderOllama} {
		t.Run(provider+" is batched", func(t *testing.T) {
			cfg := ai.NewConfig(ai.WithProvider(provider), ai.WithModel("embed"), ai.WithBatchSize(8))
			e, err := NewEmbedder(cfg)
			require.NoError(t, err)
			b, ok := e.(*ai.BatchEmbedder)
			require.True(t, ok)
			defer b.Release()
			assert.Equal(t, provider, e.Name())
		})

		t.Run(provider+" unbatched", func(t *testing.T) {
			cfg := ai.NewConfig(ai.WithProvider(provider), ai.WithModel("embed"), ai.WithBatchSize(0))
			e, err := NewEmbedder(cfg)
			require.NoError(t, err)
			_, batched := e.(*ai.BatchEmbedder)
			assert.False(t, batched)
		})
	}

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewEmbedder(ai.NewConfig(ai.WithProvider("cohere")))
		assert.ErrorIs(t, err, ai.ErrUnknownProvider)
	})
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, config.StoreConfig{}, 4, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	s, err = NewStore(ctx, config.StoreConfig{Type: config.StoreBadger, Path: filepath.Join(t.TempDir(), "db")}, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Dimension())
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, config.StoreConfig{Type: config.StorePgvector}, 4, nil)
	assert.ErrorIs(t, err, pgvector.ErrInvalidConfig)

	_, err = NewStore(ctx, config.StoreConfig{Type: "redis"}, 4, nil)
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestNewTracker(t *testing.T) {
	tr, err := NewTracker(config.StatusConfig{})
	require.NoError(t, err)
	assert.IsType(t, &status.Memory{}, tr)

	path := filepath.Join(t.TempDir(), "nested", "status.db")
	tr, err = NewTracker(config.StatusConfig{Type: config.StatusSQLite, Path: path})
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)

	_, err = NewTracker(config.StatusConfig{Type: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownTracker)
}

func TestNewOCRRegistry(t *testing.T) {
	empty, err := NewOCRRegistry(config.OCRConfig{}, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Names())

	reg, err := NewOCRRegistry(config.OCRConfig{
		Default: "Tesseract",
		Engines: map[string]config.OCREngineConfig{
			"easyocr":   {Command: "easyocr-cli", Args: []string{"-"}},
			"tesseract": {Command: "tesseract", Language: "deu"},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"easyocr", "tesseract"}, reg.Names())

	def, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", def.Name())

	_, err = NewOCRRegistry(config.OCRConfig{
		Default: "missing",
		Engines: map[string]config.OCREngineConfig{"tesseract": {Command: "tesseract"}},
	}, nil)
	assert.ErrorIs(t, err, ocr.ErrUnknownEngine)
}
