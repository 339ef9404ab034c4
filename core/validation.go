// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
)

// ValidateArtifact validates an Artifact according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Type must be text or image
//   - SourceName must not be empty
//   - PageNumber must be >= 1
//   - OrderIndex must be >= 0
//   - Image artifacts must carry Data or recovered Text
//
// NOT validated:
//   - Text of text artifacts (blank text is skipped at assembly)
func ValidateArtifact(a *Artifact) error {
	if a == nil {
		return &ArtifactError{Reason: "artifact is nil"}
	}
	if a.ID == "" {
		return &ArtifactError{Reason: "id is empty"}
	}
	if !a.Type.IsValid() {
		return &ArtifactError{ID: a.ID, Reason: fmt.Sprintf("unknown type %q", a.Type)}
	}
	if a.SourceName == "" {
		return &ArtifactError{ID: a.ID, Reason: "source name is empty"}
	}
	if a.PageNumber < 1 {
		return &ArtifactError{ID: a.ID, Reason: fmt.Sprintf("page number %d must be >= 1", a.PageNumber)}
	}
	if a.OrderIndex < 0 {
		return &ArtifactError{ID: a.ID, Reason: fmt.Sprintf("order index %d must be >= 0", a.OrderIndex)}
	}
	if a.Type == ArtifactImage && len(a.Data) == 0 && a.Text == "" {
		return &ArtifactError{ID: a.ID, Reason: "image has no data"}
	}
	return nil
}

// ValidateChunk validates a Chunk's identity and span.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidChunk)
	}
	if c.Index < 0 {
		return fmt.Errorf("%w: index %d is negative", ErrInvalidChunk, c.Index)
	}
	if c.Content == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidChunk, c.ID, ErrEmptyContent)
	}
	if c.Start < 0 || c.End < c.Start {
		return fmt.Errorf("%w: %s: bad span [%d,%d)", ErrInvalidChunk, c.ID, c.Start, c.End)
	}
	return nil
}

// ValidateVectorRecord validates a VectorRecord's metadata and vector values.
// Dimension is checked by the store, which owns it.
func ValidateVectorRecord(r *VectorRecord) error {
	if r == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if r.Metadata.IngestionID == "" {
		return fmt.Errorf("%w: ingestion id is empty", ErrInvalidRecord)
	}
	if r.Metadata.ChunkID == "" {
		return fmt.Errorf("%w: chunk id is empty", ErrInvalidRecord)
	}
	if r.Metadata.ChunkIndex < 0 {
		return fmt.Errorf("%w: chunk index %d is negative", ErrInvalidRecord, r.Metadata.ChunkIndex)
	}
	for i, v := range r.Vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: %s: component %d is not finite", ErrInvalidRecord, r.Metadata.ChunkID, i)
		}
	}
	return nil
}
