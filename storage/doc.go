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


// Package storage defines the vector store port and helpers shared by its
// implementations.
//
// # Constructor Return Type Pattern
//
// Public constructors of store implementations return the VectorStore
// interface to keep callers independent of a particular backend:
//
//	store, err := pgvector.New(ctx, cfg)  // returns storage.VectorStore
//
// # Implementations
//
//   - storage/memory: reference store, full scan over an in-process slice
//   - storage/badger: embedded durable store on BadgerDB
//   - storage/pgvector: PostgreSQL with the pgvector extension
//   - storage/qdrant: Qdrant vector database
//
// # Shared Semantics
//
// Every store validates a whole batch before writing any of it
// (ValidateRecords), rejects queries of the wrong length (ValidateQuery),
// scores with cosine similarity where a zero-norm vector scores 0
// (CosineSimilarity), and breaks ties by insertion order.
//
// Durable stores check their layout at construction and fail with a
// *SchemaError instead of repairing it.
//
// # Error Handling
//
// The package defines sentinel errors for common failure modes:
//   - ErrDimensionMismatch: wrong vector length (see DimensionError)
//   - ErrSchema: durable layout mismatch (see SchemaError)
//   - ErrBackend: engine failure
//   - ErrStorageClosed: operation on a closed store
//
// Implementations wrap these so callers can use errors.Is.
package storage
