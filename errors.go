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

package vectorize

import (
	"context"
	"errors"

	"github.com/poiesic/vectorize/chunking"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/extract"
	"github.com/poiesic/vectorize/ingestion"
	"github.com/poiesic/vectorize/ocr"
	"github.com/poiesic/vectorize/status"
	"github.com/poiesic/vectorize/storage"
)

var (
	// ErrNoExtractableText is returned when a document yields no text, even
	// after OCR.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrUnknownStore is returned for an unrecognised store type.
	ErrUnknownStore = errors.New("unknown vector store type")

	// ErrUnknownTracker is returned for an unrecognised status tracker type.
	ErrUnknownTracker = errors.New("unknown status tracker type")
)

// permanent lists failures that repeat on every attempt.
var permanent = []error{
	ErrNoExtractableText,
	extract.ErrUnsupportedType,
	extract.ErrInvalidEncoding,
	core.ErrInvalidArtifact,
	core.ErrInvalidRecord,
	core.ErrEmptyContent,
	chunking.ErrInvalidParams,
	storage.ErrDimensionMismatch,
	storage.ErrSchema,
	storage.ErrStorageClosed,
	ocr.ErrUnknownEngine,
	status.ErrExists,
	status.ErrInvalidTransition,
	ingestion.ErrIngestionIDRequired,
	context.Canceled,
	context.DeadlineExceeded,
}

// Retryable reports whether an ingestion or search error may succeed on a
// later attempt. Backend failures are retryable; bad input and schema
// problems are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range permanent {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}
