package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/vectorize/ai"
	"github.com/poiesic/vectorize/ai/mock"
	"github.com/poiesic/vectorize/chunking"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/ocr"
	"github.com/poiesic/vectorize/status"
	"github.com/poiesic/vectorize/storage"
	"github.com/poiesic/vectorize/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 16

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *mock.MockEmbedder, *memory.Store) {
	t.Helper()
	embedder := mock.NewMockEmbedder(mock.WithDimension(testDim))
	store := memory.New(testDim)
	p, err := NewPipeline(NoopValidator{}, embedder, store, opts...)
	require.NoError(t, err)
	return p, embedder, store
}

func TestNewPipeline_Requirements(t *testing.T) {
	embedder := mock.NewMockEmbedder(mock.WithDimension(testDim))
	store := memory.New(testDim)

	_, err := NewPipeline(nil, embedder, store)
	assert.ErrorIs(t, err, ErrValidatorRequired)
	_, err = NewPipeline(NoopValidator{}, nil, store)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewPipeline(NoopValidator{}, embedder, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(NoopValidator{}, embedder, memory.New(testDim+1))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestRun_FlatText(t *testing.T) {
	ctx := context.Background()
	p, _, store := newTestPipeline(t)

	chunks, err := p.Run(ctx, "ing-1", "Hello world, a short note.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "chunk:0", chunks[0].ID)
	assert.Equal(t, "simple", chunks[0].Strategy())
	assert.Equal(t, 1, store.Len())

	results, err := store.SimilaritySearch(ctx, mock.Vector(chunks[0].Content, testDim), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	meta := results[0].Record.Metadata
	assert.Equal(t, "ing-1", meta.IngestionID)
	assert.Equal(t, "chunk:0", meta.ChunkID)
	assert.Equal(t, "simple", meta.ChunkStrategy)
	assert.Equal(t, "mock", meta.Provider)
	assert.Equal(t, "fixed_size", meta.SourceMetadata[core.MetaChunkerName])
}

func TestRun_SelectsStrategyFromContent(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	paragraphs := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph."
	chunks, err := p.Run(context.Background(), "ing-p", paragraphs)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "paragraph", chunks[0].Strategy())

	sentences := "One sentence here. Another one there. A third to finish."
	chunks, err = p.Run(context.Background(), "ing-s", sentences)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "sentence", chunks[0].Strategy())
}

func TestRun_ExplicitChunkerRecordsEmptyParams(t *testing.T) {
	p, _, _ := newTestPipeline(t, WithChunker(chunking.Sentence{}))

	chunks, err := p.Run(context.Background(), "ing-2", "Short.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	name, _ := chunks[0].Metadata.GetString(core.MetaChunkerName)
	assert.Equal(t, "sentence_window", name)
	params, _ := chunks[0].Metadata.Get(core.MetaChunkerParams)
	assert.Equal(t, map[string]any{}, params)
}

func TestRun_PreservesChunkOrder(t *testing.T) {
	p, _, store := newTestPipeline(t, WithChunker(chunking.FixedSize{}))
	text := strings.Repeat("abcdefghij", 120)

	chunks, err := p.Run(context.Background(), "ing-order", text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, len(chunks), store.Len())
}

func TestRun_BlankTextStoresNothing(t *testing.T) {
	p, embedder, store := newTestPipeline(t)
	chunks, err := p.Run(context.Background(), "ing-blank", "   \n ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, embedder.CallCount())
}

func TestRun_LeadingBlankLinesAreNotStored(t *testing.T) {
	ctx := context.Background()
	p, _, store := newTestPipeline(t)
	para := strings.Repeat("Notes about the harvest season. ", 62)
	text := "\n\n" + para + "\n\n" + para + "\n\n" + para

	chunks, err := p.Run(ctx, "harvest", text)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 0, chunks[0].Start)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
		assert.Equal(t, "paragraph", c.Strategy())
	}
}

func TestRun_RequiresIngestionID(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	_, err := p.Run(context.Background(), "", "text")
	assert.ErrorIs(t, err, ErrIngestionIDRequired)
}

func TestRun_StageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("validate", func(t *testing.T) {
		embedder := mock.NewMockEmbedder(mock.WithDimension(testDim))
		store := memory.New(testDim)
		p, err := NewPipeline(NonEmptyValidator{}, embedder, store)
		require.NoError(t, err)

		_, err = p.Run(ctx, "ing-v", "  ")
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageValidate, stageErr.Stage)
		assert.Equal(t, "ing-v", stageErr.IngestionID)
		assert.ErrorIs(t, err, ErrPipeline)
		assert.ErrorIs(t, err, core.ErrEmptyContent)
		assert.Equal(t, 0, embedder.CallCount())
	})

	t.Run("embed backend", func(t *testing.T) {
		p, embedder, store := newTestPipeline(t)
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, ai.BackendError("mock", errors.New("connection refused"))
		}

		_, err := p.Run(ctx, "ing-e", "some text")
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageEmbed, stageErr.Stage)
		assert.ErrorIs(t, err, ai.ErrEmbedding)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("embed count mismatch", func(t *testing.T) {
		p, embedder, store := newTestPipeline(t)
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			return [][]float32{}, nil
		}

		_, err := p.Run(ctx, "ing-c", "some text")
		assert.ErrorIs(t, err, ai.ErrCountMismatch)
		assert.ErrorIs(t, err, ErrPipeline)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("persist dimension", func(t *testing.T) {
		p, embedder, store := newTestPipeline(t)
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{1, 2}
			}
			return out, nil
		}

		_, err := p.Run(ctx, "ing-d", "some text")
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StagePersist, stageErr.Stage)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("invalid chunker params", func(t *testing.T) {
		sel := chunking.NewSelector(chunking.Rule{Name: "bad", Chunker: chunking.FixedSize{}, Params: chunking.Params{ChunkSize: -5}})
		p, _, _ := newTestPipeline(t, WithSelector(sel))
		_, err := p.Run(ctx, "ing-k", "some text")
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageChunk, stageErr.Stage)
		assert.ErrorIs(t, err, chunking.ErrInvalidParams)
	})
}

func TestRun_ReportsStatus(t *testing.T) {
	ctx := context.Background()
	tracker := status.NewMemory()
	p, embedder, _ := newTestPipeline(t, WithStatusReporter(tracker))

	require.NoError(t, tracker.Create(ctx, status.Record{IngestionID: "ok"}))
	_, err := p.Run(ctx, "ok", "fine text")
	require.NoError(t, err)
	rec, err := tracker.Get(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, status.StateCompleted, rec.State)

	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("down")
	}
	require.NoError(t, tracker.Create(ctx, status.Record{IngestionID: "bad"}))
	_, err = p.Run(ctx, "bad", "fine text")
	require.Error(t, err)
	rec, err = tracker.Get(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, status.StateFailed, rec.State)
	assert.Contains(t, rec.Error, "failed at embed")

	// an untracked id only produces reporter warnings
	embedder.Reset()
	_, err = p.Run(ctx, "untracked", "fine text")
	assert.NoError(t, err)
}

func pdfLikeArtifacts() []core.Artifact {
	const src = "report.pdf"
	return []core.Artifact{
		{ID: core.ArtifactID(src, 1, 0), Type: core.ArtifactText, Text: "Quarterly revenue grew across every region.", SourceName: src, PageNumber: 1, OrderIndex: 0},
		{ID: core.ArtifactID(src, 1, 1), Type: core.ArtifactImage, Data: []byte("chart"), MimeType: "image/png", SourceName: src, PageNumber: 1, OrderIndex: 1},
		{ID: core.ArtifactID(src, 2, 0), Type: core.ArtifactText, Text: "Appendix with methodology notes.", SourceName: src, PageNumber: 2, OrderIndex: 0},
	}
}

func TestRunArtifacts_SamePageImages(t *testing.T) {
	ctx := context.Background()
	p, _, store := newTestPipeline(t)
	artifacts := pdfLikeArtifacts()

	chunks, err := p.RunArtifacts(ctx, "ing-pdf", artifacts)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, artifacts[0].ID+":chunk:0", chunks[0].ID)
	assert.Equal(t, artifacts[2].ID+":chunk:0", chunks[1].ID)

	images, _ := chunks[0].Metadata.Get(core.MetaAssociatedImageIDs)
	assert.Equal(t, []string{artifacts[1].ID}, images)
	images, _ = chunks[1].Metadata.Get(core.MetaAssociatedImageIDs)
	assert.Equal(t, []string{}, images)

	pages, _ := chunks[1].Metadata.Get(core.MetaPageNumbers)
	assert.Equal(t, []int{2}, pages)
	source, _ := chunks[0].Metadata.GetString(core.MetaSourceFile)
	assert.Equal(t, "report.pdf", source)

	assert.Equal(t, 2, store.Len())
	results, err := store.SimilaritySearch(ctx, mock.Vector(chunks[1].Content, testDim), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Record.Metadata.ChunkIndex)
}

func TestRunArtifacts_ValidatorSeesNativeText(t *testing.T) {
	var seen string
	validator := ValidatorFunc(func(_ context.Context, text string) error {
		seen = text
		return nil
	})
	embedder := mock.NewMockEmbedder(mock.WithDimension(testDim))
	p, err := NewPipeline(validator, embedder, memory.New(testDim))
	require.NoError(t, err)

	_, err = p.RunArtifacts(context.Background(), "ing-v", pdfLikeArtifacts())
	require.NoError(t, err)
	assert.Equal(t, "Quarterly revenue grew across every region.\n\nAppendix with methodology notes.", seen)
}

func TestRunArtifacts_InvalidArtifact(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	artifacts := pdfLikeArtifacts()
	artifacts[2].ID = artifacts[0].ID

	_, err := p.RunArtifacts(context.Background(), "ing-dup", artifacts)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageChunk, stageErr.Stage)
	assert.ErrorIs(t, err, core.ErrInvalidArtifact)
}

type failingEngine struct{}

func (failingEngine) Name() string { return "failing" }
func (failingEngine) ExtractText(context.Context, []byte) (string, error) {
	return "", errors.New("simulated OCR failure")
}

func TestRunArtifacts_OCRFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	enricher, err := ocr.NewEnricher(failingEngine{})
	require.NoError(t, err)
	defer enricher.Release()

	enriched, results, err := enricher.Enrich(ctx, pdfLikeArtifacts())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ocr.StatusFailed, results[0].Status)

	p, _, store := newTestPipeline(t)
	chunks, err := p.RunArtifacts(ctx, "ing-ocr", enriched)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}
	assert.Equal(t, len(chunks), store.Len())
}

type captionEngine struct{}

func (captionEngine) Name() string { return "caption" }
func (captionEngine) ExtractText(context.Context, []byte) (string, error) {
	return "Revenue by region chart", nil
}

func TestRunArtifacts_OCRTextIsChunked(t *testing.T) {
	ctx := context.Background()
	enricher, err := ocr.NewEnricher(captionEngine{})
	require.NoError(t, err)
	defer enricher.Release()

	artifacts := pdfLikeArtifacts()
	enriched, _, err := enricher.Enrich(ctx, artifacts)
	require.NoError(t, err)

	p, _, _ := newTestPipeline(t)
	chunks, err := p.RunArtifacts(ctx, "ing-ocr2", enriched)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, artifacts[1].ID+ocr.DerivedSuffix+":chunk:0", chunks[1].ID)
	assert.Equal(t, "Revenue by region chart", chunks[1].Content)
	images, _ := chunks[1].Metadata.Get(core.MetaAssociatedImageIDs)
	assert.Equal(t, []string{artifacts[1].ID}, images)
}
