package ai

import (
	"context"
	"fmt"

	"github.com/poiesic/vectorize/core"
)

// EmbedChunks embeds the content of each chunk. The result holds exactly one
// vector per chunk, in chunk order; any other count is ErrCountMismatch.
func EmbedChunks(ctx context.Context, e Embedder, chunks []core.Chunk) ([][]float32, error) {
	if e == nil {
		return nil, ErrEmbedderRequired
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := e.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d chunks", ErrCountMismatch, e.Name(), len(vectors), len(chunks))
	}
	return vectors, nil
}
