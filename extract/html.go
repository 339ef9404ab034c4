package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/vectorize/core"
)

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td, th, figcaption, dt, dd"

// HTML extracts block-level text and images from an HTML document. Every
// artifact is on page 1. Images embedded as data URIs carry their bytes;
// other images carry only their alt text.
type HTML struct{}

var _ Extractor = HTML{}

func (HTML) Extract(ctx context.Context, data []byte, sourceName string) ([]core.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, template").Remove()

	var artifacts []core.Artifact
	add := func(a core.Artifact) {
		a.ID = core.ArtifactID(sourceName, 1, len(artifacts))
		a.SourceName = sourceName
		a.PageNumber = 1
		a.OrderIndex = len(artifacts)
		artifacts = append(artifacts, a)
	}

	doc.Find(blockSelector + ", img").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "img" {
			src, _ := s.Attr("src")
			alt, _ := s.Attr("alt")
			mimeType, payload := decodeDataURI(src)
			if payload == nil && strings.TrimSpace(alt) == "" {
				return
			}
			add(core.Artifact{
				Type:     core.ArtifactImage,
				Data:     payload,
				MimeType: mimeType,
				Text:     strings.TrimSpace(alt),
			})
			return
		}
		// Nested blocks are emitted by their outermost block only.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		clone := s.Clone()
		clone.Find("img").Remove()
		text := strings.Join(strings.Fields(clone.Text()), " ")
		if text == "" {
			return
		}
		add(core.Artifact{Type: core.ArtifactText, Text: text, MimeType: "text/html"})
	})
	return artifacts, nil
}

// decodeDataURI returns the media type and bytes of a base64 data URI, or
// nil for anything else.
func decodeDataURI(src string) (string, []byte) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(src), "data:")
	if !ok {
		return "", nil
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil
	}
	return mediaType, data
}
