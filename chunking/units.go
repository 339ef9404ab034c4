package chunking

import (
	"regexp"
	"unicode/utf8"

	"github.com/poiesic/vectorize/core"
)

var (
	// A sentence ends at terminal punctuation, optional closing quotes or
	// brackets, then whitespace. The whitespace stays with the sentence.
	sentenceBoundary = regexp.MustCompile(`[.!?]+["'\x{201D}\x{2019})\]]*\s+`)

	// A paragraph ends at a blank line. Following whitespace stays with it.
	paragraphBoundary = regexp.MustCompile(`\n[ \t]*\n\s*`)
)

// splitUnits cuts content at every boundary match. The spans tile content
// with no gaps.
func splitUnits(content string, boundary *regexp.Regexp) []span {
	var spans []span
	prev := 0
	for _, m := range boundary.FindAllStringIndex(content, -1) {
		if m[1] <= prev {
			continue
		}
		spans = append(spans, span{start: prev, end: m[1]})
		prev = m[1]
	}
	if prev < len(content) {
		spans = append(spans, span{start: prev, end: len(content)})
	}
	return spans
}

func countUnits(content string, boundary *regexp.Regexp) int {
	n := 0
	for _, sp := range splitUnits(content, boundary) {
		if !isBlank(content[sp.start:sp.end]) {
			n++
		}
	}
	return n
}

// groupUnits packs consecutive units into spans of at most size runes. A unit
// longer than size forms its own span. Each new span repeats up to overlap
// trailing units of the previous one, fewer when they would not leave room
// for the next new unit, so every span ends past its predecessor.
func groupUnits(content string, units []span, size, overlap int) []span {
	lengths := make([]int, len(units))
	for k, u := range units {
		lengths[k] = utf8.RuneCountInString(content[u.start:u.end])
	}

	var out []span
	i := 0
	for i < len(units) {
		j, runes := i, 0
		for j < len(units) {
			if j > i && runes+lengths[j] > size {
				break
			}
			runes += lengths[j]
			j++
		}
		out = append(out, span{start: units[i].start, end: units[j-1].end})
		if j >= len(units) {
			break
		}

		next := max(j-overlap, i+1)
		carried := 0
		for k := next; k <= j; k++ {
			carried += lengths[k]
		}
		for next < j && carried > size {
			carried -= lengths[next]
			next++
		}
		i = next
	}
	return out
}

func chunkUnits(c Chunker, content string, params Params, boundary *regexp.Regexp) ([]core.Chunk, error) {
	p, err := resolve(c, params)
	if err != nil {
		return nil, err
	}
	if isBlank(content) {
		return nil, nil
	}
	spans := groupUnits(content, splitUnits(content, boundary), p.ChunkSize, p.Overlap)
	return buildChunks(c, content, spans, params), nil
}

// Sentence groups whole sentences into chunks of up to ChunkSize runes.
// Overlap is the number of sentences repeated at the start of the next chunk.
type Sentence struct{}

var _ Chunker = Sentence{}

func (Sentence) Name() string     { return "sentence_window" }
func (Sentence) Strategy() string { return "sentence" }

func (Sentence) DefaultParams() Params {
	return Params{ChunkSize: 800, Overlap: 1}
}

func (s Sentence) Chunk(content string, params Params) ([]core.Chunk, error) {
	return chunkUnits(s, content, params, sentenceBoundary)
}

// Paragraph groups blank-line separated paragraphs into chunks of up to
// ChunkSize runes. Overlap is counted in paragraphs.
type Paragraph struct{}

var _ Chunker = Paragraph{}

func (Paragraph) Name() string     { return "paragraph_block" }
func (Paragraph) Strategy() string { return "paragraph" }

func (Paragraph) DefaultParams() Params {
	return Params{ChunkSize: 1500, Overlap: 0}
}

func (p Paragraph) Chunk(content string, params Params) ([]core.Chunk, error) {
	return chunkUnits(p, content, params, paragraphBoundary)
}
