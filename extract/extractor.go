// Package extract turns raw documents into ordered artifacts.
package extract

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/poiesic/vectorize/core"
)

// Extractor converts a raw document into artifacts in reading order.
type Extractor interface {
	Extract(ctx context.Context, data []byte, sourceName string) ([]core.Artifact, error)
}

// Registry selects an extractor by content type.
type Registry struct {
	byType map[string]Extractor
}

// NewRegistry returns a registry with the built-in text, HTML and manifest
// extractors.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Extractor)}
	r.Register("text/plain", Text{})
	r.Register("text/markdown", Text{})
	r.Register("text/html", HTML{})
	r.Register("application/xhtml+xml", HTML{})
	r.Register(ManifestType, Manifest{})
	return r
}

// Register adds or replaces the extractor for contentType.
func (r *Registry) Register(contentType string, e Extractor) {
	r.byType[normalizeType(contentType)] = e
}

// Lookup returns the extractor for contentType. Parameters such as charset
// are ignored.
func (r *Registry) Lookup(contentType string) (Extractor, error) {
	e, ok := r.byType[normalizeType(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return e, nil
}

// Extract picks an extractor from contentType, or from sourceName's extension
// when contentType is empty.
func (r *Registry) Extract(ctx context.Context, data []byte, sourceName, contentType string) ([]core.Artifact, error) {
	if contentType == "" {
		contentType = TypeForName(sourceName)
	}
	e, err := r.Lookup(contentType)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, data, sourceName)
}

var extensionTypes = map[string]string{
	".txt":  "text/plain",
	".text": "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".htm":  "text/html",
	".json": ManifestType,
}

// TypeForName guesses a content type from a file extension. Unknown
// extensions are treated as plain text.
func TypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return normalizeType(t)
	}
	return "text/plain"
}

func normalizeType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
