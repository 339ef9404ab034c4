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


package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates a vector whose length differs from the store's.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrSchema indicates durable storage whose layout does not match expectations.
	ErrSchema = errors.New("schema validation failed")

	// ErrBackend wraps failures reported by the storage engine.
	ErrBackend = errors.New("storage backend failure")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrCountMismatch indicates chunks and embeddings of different lengths.
	ErrCountMismatch = errors.New("chunk and embedding counts differ")

	// ErrStoreRequired is returned when a nil store is supplied.
	ErrStoreRequired = errors.New("vector store required")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)

// DimensionError reports a vector of the wrong length.
type DimensionError struct {
	Expected int
	Got      int
	// ChunkID identifies the offending record. Empty for queries.
	ChunkID string
}

func (e *DimensionError) Error() string {
	if e.ChunkID == "" {
		return fmt.Sprintf("query vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
	}
	return fmt.Sprintf("vector dimension mismatch for %s: expected %d, got %d", e.ChunkID, e.Expected, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// SchemaError describes a durable layout that does not match what the store needs.
type SchemaError struct {
	Table    string
	Expected string
	Detail   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %s (expected %s); apply migrations before starting", e.Table, e.Detail, e.Expected)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// BackendError wraps err so that errors.Is matches ErrBackend.
func BackendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}
