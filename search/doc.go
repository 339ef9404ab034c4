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

// Package search answers text queries against a vector store.
//
// A Searcher embeds the query with the same embedder used at ingestion,
// asks the store for the nearest records and checks that every result
// carries the metadata keys consumers rely on. Results missing a key are
// dropped with a warning, or fail the search in strict mode.
//
// Hits keep the store's ranking. Each hit also reports whether all
// significant query words appear verbatim in the chunk text, after
// stop-word filtering.
package search
