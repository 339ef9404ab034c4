// Package ocr recovers text from image artifacts. Recovery is best effort:
// a failed image is reported in its Result and never aborts an ingestion.
package ocr

import (
	"context"
	"strings"

	"github.com/poiesic/vectorize/core"
)

// Engine recovers text from encoded image bytes.
type Engine interface {
	// Name identifies the engine in a Registry.
	Name() string
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Status is the outcome of recognizing one image.
type Status int

const (
	StatusRecovered Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRecovered:
		return "recovered"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result reports what an engine recovered from one image artifact.
type Result struct {
	ArtifactID string
	Status     Status
	// Text is trimmed and set only for StatusRecovered.
	Text string
	// Err is set only for StatusFailed.
	Err error
}

// Recognize runs engine over one image artifact.
func Recognize(ctx context.Context, engine Engine, artifact core.Artifact) Result {
	res := Result{ArtifactID: artifact.ID}
	if len(artifact.Data) == 0 {
		res.Status = StatusEmpty
		return res
	}
	text, err := engine.ExtractText(ctx, artifact.Data)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	text = strings.TrimSpace(text)
	if text == "" {
		res.Status = StatusEmpty
		return res
	}
	res.Status = StatusRecovered
	res.Text = text
	return res
}
