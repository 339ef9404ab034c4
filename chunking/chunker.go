// Package chunking splits content into ordered, span-preserving chunks and
// selects a chunking strategy from content characteristics.
//
// Every chunker returns chunks whose Content is exactly
// content[Start:End]. Consecutive spans touch or overlap by the declared
// amount, so the original content can be reconstructed from the chunks.
// Indices run from 0 without gaps.
package chunking

import (
	"fmt"
	"strings"

	"github.com/poiesic/vectorize/core"
)

// Params controls chunk sizing. The zero value means "use the chunker's defaults".
type Params struct {
	// ChunkSize is the maximum chunk length in runes. Sentence and paragraph
	// chunkers exceed it only when a single unit is longer.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// Overlap is measured in runes for FixedSize, and in units (sentences or
	// paragraphs) for the other chunkers.
	Overlap int `yaml:"overlap" json:"overlap"`
}

// IsZero reports whether no parameters were given.
func (p Params) IsZero() bool {
	return p.ChunkSize == 0 && p.Overlap == 0
}

// AsMap renders the parameters for chunk metadata. Zero params render as an empty map.
func (p Params) AsMap() map[string]any {
	if p.IsZero() {
		return map[string]any{}
	}
	return map[string]any{"chunk_size": p.ChunkSize, "overlap": p.Overlap}
}

func (p Params) validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidParams, p.ChunkSize)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidParams, p.Overlap)
	}
	return nil
}

// Chunker splits content into chunks.
// Implementations must be safe for concurrent use.
type Chunker interface {
	// Name identifies the chunker, e.g. "sentence_window".
	Name() string

	// Strategy is the strategy label recorded on chunks, e.g. "sentence".
	Strategy() string

	// DefaultParams are used when Chunk receives zero Params.
	DefaultParams() Params

	// Chunk splits content. Blank content yields no chunks and no error.
	Chunk(content string, params Params) ([]core.Chunk, error)
}

// span is a half-open byte range.
type span struct {
	start, end int
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// buildChunks turns spans into chunks carrying the chunker's strategy metadata.
// recorded is what ends up in chunker_params.
func buildChunks(c Chunker, content string, spans []span, recorded Params) []core.Chunk {
	spans = foldBlankSpans(content, spans)
	chunks := make([]core.Chunk, 0, len(spans))
	for _, sp := range spans {
		idx := len(chunks)
		chunks = append(chunks, core.Chunk{
			ID:      FlatChunkID(idx),
			Index:   idx,
			Content: content[sp.start:sp.end],
			Start:   sp.start,
			End:     sp.end,
			Metadata: core.NewMetadata(
				core.MetaChunkStrategy, c.Strategy(),
				core.MetaChunkerName, c.Name(),
				core.MetaChunkerParams, recorded.AsMap(),
			),
		})
	}
	return chunks
}

// foldBlankSpans merges whitespace-only spans into the next span, or into
// the previous one at the end of content, so no chunk is blank and the
// remaining spans still cover content. Spans must be ordered by start.
func foldBlankSpans(content string, spans []span) []span {
	out := make([]span, 0, len(spans))
	pending := -1
	for _, sp := range spans {
		if isBlank(content[sp.start:sp.end]) {
			if pending < 0 {
				pending = sp.start
			}
			continue
		}
		if pending >= 0 {
			sp.start = min(sp.start, pending)
			pending = -1
		}
		out = append(out, sp)
	}
	if pending >= 0 && len(out) > 0 {
		last := &out[len(out)-1]
		last.end = max(last.end, spans[len(spans)-1].end)
	}
	return out
}

// FlatChunkID is the id of the index-th chunk of flat text.
func FlatChunkID(index int) string {
	return fmt.Sprintf("chunk:%d", index)
}

// resolve applies defaults to zero params and validates the result.
func resolve(c Chunker, params Params) (Params, error) {
	if params.IsZero() {
		params = c.DefaultParams()
	}
	if err := params.validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}

var chunkers = []Chunker{FixedSize{}, Sentence{}, Paragraph{}}

// All returns every built-in chunker in selection order of preference.
func All() []Chunker {
	out := make([]Chunker, len(chunkers))
	copy(out, chunkers)
	return out
}

// Lookup finds a built-in chunker by name or strategy label.
func Lookup(name string) (Chunker, error) {
	for _, c := range chunkers {
		if c.Name() == name || c.Strategy() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChunker, name)
}
