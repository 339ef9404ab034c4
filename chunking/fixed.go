package chunking

import (
	"fmt"

	"github.com/poiesic/vectorize/core"
)

// FixedSize cuts content into windows of ChunkSize runes. Neighbouring
// windows share Overlap runes.
type FixedSize struct{}

var _ Chunker = FixedSize{}

func (FixedSize) Name() string     { return "fixed_size" }
func (FixedSize) Strategy() string { return "simple" }

func (FixedSize) DefaultParams() Params {
	return Params{ChunkSize: 500, Overlap: 50}
}

func (f FixedSize) Chunk(content string, params Params) ([]core.Chunk, error) {
	p, err := resolve(f, params)
	if err != nil {
		return nil, err
	}
	if p.Overlap >= p.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidParams, p.Overlap, p.ChunkSize)
	}
	if isBlank(content) {
		return nil, nil
	}

	// Byte offset of every rune, plus the end of the content.
	offsets := make([]int, 0, len(content)+1)
	for i := range content {
		offsets = append(offsets, i)
	}
	runes := len(offsets)
	offsets = append(offsets, len(content))

	step := p.ChunkSize - p.Overlap
	var spans []span
	for start := 0; start < runes; start += step {
		end := min(start+p.ChunkSize, runes)
		spans = append(spans, span{start: offsets[start], end: offsets[end]})
		if end == runes {
			break
		}
	}
	return buildChunks(f, content, spans, params), nil
}
