package search

import (
	"strings"
	"unicode"
)

// stopWords are ignored when checking for verbatim matches.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {}, "was": {},
	"to": {}, "of": {}, "and": {}, "in": {}, "that": {}, "have": {}, "it": {},
	"for": {}, "not": {}, "on": {}, "with": {}, "as": {}, "you": {}, "do": {},
	"at": {}, "this": {}, "but": {}, "by": {}, "from": {}, "or": {},
}

// significantWords lowercases text, splits it on anything that is not a
// letter or digit and removes stop words.
func significantWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, w := range fields {
		if _, stop := stopWords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

// containsAllQueryWords reports whether every significant query word occurs
// in document. A query made only of stop words never matches.
func containsAllQueryWords(document, query string) bool {
	queryWords := significantWords(query)
	if len(queryWords) == 0 {
		return false
	}

	present := make(map[string]struct{})
	for _, w := range significantWords(document) {
		present[w] = struct{}{}
	}
	for _, w := range queryWords {
		if _, ok := present[w]; !ok {
			return false
		}
	}
	return true
}
