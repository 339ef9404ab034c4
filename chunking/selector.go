package chunking

import "unicode/utf8"

// Features are the content characteristics strategy rules look at.
type Features struct {
	Paragraphs int
	Sentences  int
	Runes      int
}

// Analyze measures content.
func Analyze(content string) Features {
	return Features{
		Paragraphs: countUnits(content, paragraphBoundary),
		Sentences:  countUnits(content, sentenceBoundary),
		Runes:      utf8.RuneCountInString(content),
	}
}

// Rule pairs a predicate over Features with the chunker and params to use.
type Rule struct {
	Name    string
	Match   func(Features) bool
	Chunker Chunker
	Params  Params
}

// Selector chooses a chunker from an ordered rule list. The first matching
// rule wins; the fallback applies when none match. Selection is a pure
// function of the content.
type Selector struct {
	rules    []Rule
	fallback Rule
}

// NewSelector creates a selector. The fallback's Match is ignored.
func NewSelector(fallback Rule, rules ...Rule) *Selector {
	return &Selector{rules: rules, fallback: fallback}
}

// DefaultSelector prefers paragraph blocks for text with at least three
// paragraphs, then sentence windows for at least three sentences, and falls
// back to fixed-size windows.
func DefaultSelector() *Selector {
	return NewSelector(
		Rule{Name: "fallback", Chunker: FixedSize{}, Params: Params{ChunkSize: 500, Overlap: 50}},
		Rule{
			Name:    "multi-paragraph",
			Match:   func(f Features) bool { return f.Paragraphs >= 3 },
			Chunker: Paragraph{},
			Params:  Params{ChunkSize: 1500, Overlap: 0},
		},
		Rule{
			Name:    "multi-sentence",
			Match:   func(f Features) bool { return f.Sentences >= 3 },
			Chunker: Sentence{},
			Params:  Params{ChunkSize: 800, Overlap: 1},
		},
	)
}

// ChooseStrategy returns the chunker and parameters for content.
func (s *Selector) ChooseStrategy(content string) (Chunker, Params) {
	f := Analyze(content)
	for _, r := range s.rules {
		if r.Match != nil && r.Match(f) {
			return r.Chunker, r.Params
		}
	}
	return s.fallback.Chunker, s.fallback.Params
}

var defaultSelector = DefaultSelector()

// ChooseStrategy picks a chunker for content using the default selector.
func ChooseStrategy(content string) (Chunker, Params) {
	return defaultSelector.ChooseStrategy(content)
}
