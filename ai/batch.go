package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"
)

// BatchEmbedder splits large requests into fixed-size batches, runs them on a
// worker pool under a rate limit, and reassembles the vectors in input order.
// The first failing batch cancels the rest.
type BatchEmbedder struct {
	inner     Embedder
	batchSize int
	pool      *ants.Pool
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ Embedder = (*BatchEmbedder)(nil)

// BatchOption configures a BatchEmbedder.
type BatchOption func(*BatchEmbedder) error

// WithBatchLimit sets the maximum texts per inner call. Zero or less sends
// everything in one call.
func WithBatchLimit(size int) BatchOption {
	return func(b *BatchEmbedder) error {
		b.batchSize = size
		return nil
	}
}

// WithWorkers sets how many batches run concurrently.
// Default is 1.
func WithWorkers(n int) BatchOption {
	return func(b *BatchEmbedder) error {
		if n < 1 {
			n = 1
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		if b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		return nil
	}
}

// WithRequestsPerSecond limits calls to the inner embedder. Zero means unlimited.
func WithRequestsPerSecond(rps float64) BatchOption {
	return func(b *BatchEmbedder) error {
		if rps <= 0 {
			b.limiter = rate.NewLimiter(rate.Inf, 0)
			return nil
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		return nil
	}
}

// WithBatchLogger sets a custom logger.
// Default is slog.Default().
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchEmbedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatchEmbedder wraps inner. Call Release when done.
func NewBatchEmbedder(inner Embedder, opts ...BatchOption) (*BatchEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	b := &BatchEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			b.Release()
			return nil, err
		}
	}
	if b.pool == nil {
		pool, err := ants.NewPool(1)
		if err != nil {
			return nil, err
		}
		b.pool = pool
	}
	b.logger = b.logger.With("component", "batch-embedder", "provider", inner.Name())
	return b, nil
}

// NewBatchEmbedderFromConfig wraps inner using the batching fields of cfg.
func NewBatchEmbedderFromConfig(inner Embedder, cfg *Config) (*BatchEmbedder, error) {
	return NewBatchEmbedder(inner,
		WithBatchLimit(cfg.BatchSize),
		WithWorkers(cfg.Concurrency),
		WithRequestsPerSecond(cfg.RequestsPerSecond),
	)
}

// Release stops the worker pool.
func (b *BatchEmbedder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

func (b *BatchEmbedder) Name() string   { return b.inner.Name() }
func (b *BatchEmbedder) Dimension() int { return b.inner.Dimension() }

// EmbedText embeds a single text under the rate limit.
func (b *BatchEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return b.inner.EmbedText(ctx, text)
}

// EmbedTexts embeds texts in batches. Output order matches input order.
func (b *BatchEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if b.batchSize <= 0 || len(texts) <= b.batchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return b.inner.EmbedTexts(ctx, texts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	batches := 0
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		batch := texts[start:end]
		offset := start
		batches++

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := b.limiter.Wait(ctx); err != nil {
				fail(err)
				return
			}
			vecs, err := b.inner.EmbedTexts(ctx, batch)
			if err != nil {
				fail(err)
				return
			}
			if len(vecs) != len(batch) {
				fail(fmt.Errorf("%w: batch at %d returned %d vectors for %d texts", ErrCountMismatch, offset, len(vecs), len(batch)))
				return
			}
			copy(results[offset:], vecs)
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		b.logger.Error("batch embedding failed", "texts", len(texts), "err", firstErr)
		return nil, firstErr
	}
	b.logger.Debug("embedded texts in batches", "texts", len(texts), "batches", batches)
	return results, nil
}
