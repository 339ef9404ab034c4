package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/vectorize/core"
)

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// Text extracts plain text. Form feeds separate pages; blank lines separate
// blocks, and each non-blank block becomes one text artifact.
type Text struct{}

var _ Extractor = Text{}

func (Text) Extract(ctx context.Context, data []byte, sourceName string) ([]core.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	var artifacts []core.Artifact
	for p, page := range strings.Split(content, "\f") {
		pageNumber := p + 1
		order := 0
		for _, block := range blankLine.Split(page, -1) {
			block = strings.TrimSpace(block)
			if block == "" {
				continue
			}
			artifacts = append(artifacts, core.Artifact{
				ID:         core.ArtifactID(sourceName, pageNumber, order),
				Type:       core.ArtifactText,
				Text:       block,
				MimeType:   "text/plain",
				SourceName: sourceName,
				PageNumber: pageNumber,
				OrderIndex: order,
			})
			order++
		}
	}
	return artifacts, nil
}
