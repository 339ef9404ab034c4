package ocr

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vectorize/core"
)

// DerivedSuffix is appended to an image id to name the text artifact
// holding its recovered text.
const DerivedSuffix = ":ocr"

// Enricher runs an engine over the image artifacts of a document and adds
// the recovered text as new text artifacts.
type Enricher struct {
	engine Engine
	pool   *ants.Pool
	logger *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher) error

// WithWorkers sets how many images are recognized concurrently.
// Default is 2.
func WithWorkers(n int) EnricherOption {
	return func(e *Enricher) error {
		if n < 1 {
			n = 1
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "ocr")
		return nil
	}
}

// NewEnricher creates an enricher for engine.
func NewEnricher(engine Engine, opts ...EnricherOption) (*Enricher, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	pool, err := ants.NewPool(2)
	if err != nil {
		return nil, err
	}
	e := &Enricher{
		engine: engine,
		pool:   pool,
		logger: slog.Default().With("component", "ocr"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Release()
			return nil, err
		}
	}
	return e, nil
}

// Release releases the worker pool.
func (e *Enricher) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Enrich recognizes every image artifact. The returned slice keeps the input
// order; each image with recovered text is followed by a text artifact with
// id {image_id}:ocr on the same page. Failures are logged and reported in the
// results, one per image. Only cancellation of ctx returns an error.
func (e *Enricher) Enrich(ctx context.Context, artifacts []core.Artifact) ([]core.Artifact, []Result, error) {
	var images []int
	for i, a := range artifacts {
		if a.Type == core.ArtifactImage {
			images = append(images, i)
		}
	}

	results := make([]Result, len(images))
	var wg sync.WaitGroup
	for slot, idx := range images {
		wg.Add(1)
		artifact := artifacts[idx]
		err := e.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				results[slot] = Result{ArtifactID: artifact.ID, Status: StatusFailed, Err: ctx.Err()}
				return
			}
			results[slot] = Recognize(ctx, e.engine, artifact)
		})
		if err != nil {
			wg.Done()
			results[slot] = Result{ArtifactID: artifact.ID, Status: StatusFailed, Err: err}
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	byIndex := make(map[int]Result, len(images))
	for slot, idx := range images {
		res := results[slot]
		byIndex[idx] = res
		switch res.Status {
		case StatusFailed:
			e.logger.Warn("OCR failed, continuing without recovered text",
				"artifact_id", res.ArtifactID, "engine", e.engine.Name(), "err", res.Err)
		case StatusEmpty:
			e.logger.Debug("no text recovered", "artifact_id", res.ArtifactID)
		}
	}

	out := make([]core.Artifact, 0, len(artifacts)+len(images))
	for i, a := range artifacts {
		res, isImage := byIndex[i]
		if !isImage || res.Status != StatusRecovered {
			out = append(out, a)
			continue
		}
		a.Text = res.Text
		out = append(out, a, core.Artifact{
			ID:         a.ID + DerivedSuffix,
			Type:       core.ArtifactText,
			Text:       res.Text,
			MimeType:   "text/plain",
			SourceName: a.SourceName,
			PageNumber: a.PageNumber,
			OrderIndex: a.OrderIndex,
		})
	}
	return out, results, nil
}
