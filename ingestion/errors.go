package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrPipeline is matched by every *StageError.
	ErrPipeline = errors.New("ingestion pipeline failed")

	// ErrValidatorRequired is returned when a validator is not provided.
	ErrValidatorRequired = errors.New("validator required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrIngestionIDRequired is returned when Run is called without an ingestion id.
	ErrIngestionIDRequired = errors.New("ingestion id required")
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StagePersist  Stage = "persist"
)

// StageError reports the stage at which an ingestion stopped.
// errors.Is matches both ErrPipeline and the underlying cause.
type StageError struct {
	Stage       Stage
	IngestionID string
	Err         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion %s failed at %s: %v", e.IngestionID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrPipeline, e.Err}
}
