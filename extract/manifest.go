package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/poiesic/vectorize/core"
)

// ManifestType is the content type of an artifact manifest.
const ManifestType = "application/vnd.vectorize.artifacts+json"

// manifestEntry is one artifact in a manifest. Image bytes are base64
// encoded by encoding/json.
type manifestEntry struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Page     int    `json:"page"`
	Order    int    `json:"order"`
}

type manifest struct {
	Source    string          `json:"source,omitempty"`
	Artifacts []manifestEntry `json:"artifacts"`
}

// Manifest reads artifacts already extracted by an external tool, such as
// a PDF parser. Entries without an id get one derived from their position.
type Manifest struct{}

var _ Extractor = Manifest{}

func (Manifest) Extract(ctx context.Context, data []byte, sourceName string) ([]core.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var m manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrInvalidEncoding, err)
	}
	if m.Source != "" {
		sourceName = m.Source
	}

	artifacts := make([]core.Artifact, 0, len(m.Artifacts))
	for i, e := range m.Artifacts {
		a := core.Artifact{
			ID:         e.ID,
			Type:       core.ArtifactType(e.Type),
			Text:       e.Text,
			Data:       e.Data,
			MimeType:   e.MimeType,
			SourceName: sourceName,
			PageNumber: e.Page,
			OrderIndex: e.Order,
		}
		if a.ID == "" {
			a.ID = core.ArtifactID(sourceName, e.Page, e.Order)
		}
		if err := core.ValidateArtifact(&a); err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}
