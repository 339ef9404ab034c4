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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidArtifact indicates an Artifact failed validation.
	ErrInvalidArtifact = errors.New("invalid artifact")

	// ErrDuplicateArtifact indicates two artifacts share an id.
	ErrDuplicateArtifact = errors.New("duplicate artifact id")

	// ErrInvalidRecord indicates a VectorRecord failed validation.
	ErrInvalidRecord = errors.New("invalid vector record")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates a required text payload is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrMissingMetadata indicates required metadata keys are absent.
	ErrMissingMetadata = errors.New("missing required metadata")
)

// ArtifactError reports a construction failure for a specific artifact.
type ArtifactError struct {
	ID     string
	Reason string
	Err    error
}

func (e *ArtifactError) Error() string {
	id := e.ID
	if id == "" {
		id = "<empty>"
	}
	return fmt.Sprintf("artifact %s: %s", id, e.Reason)
}

// Unwrap matches ErrInvalidArtifact and the specific cause, if any.
func (e *ArtifactError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidArtifact, e.Err}
	}
	return []error{ErrInvalidArtifact}
}
