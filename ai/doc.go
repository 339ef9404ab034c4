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


// Package ai defines the embedding port used by ingestion and search.
//
// The Embedder interface converts text to fixed-dimension vectors. Callers
// depend on the interface only; the wire format of any remote call belongs
// to the implementation.
//
// # Implementation Packages
//
//   - ai/mock: deterministic offline embedder, also used as a test double
//   - ai/openai: OpenAI-compatible APIs via langchaingo
//   - ai/ollama: native Ollama API via langchaingo
//
// # Constructor Return Type Pattern
//
// Public constructors of production embedders (openai.NewEmbedder,
// ollama.NewEmbedder) return the ai.Embedder INTERFACE to prevent coupling to
// implementation details. mock.NewMockEmbedder returns the CONCRETE type so
// tests can inject behavior and read call counts.
//
// # Contract
//
// EmbedTexts returns exactly one vector per input, in input order. Backend
// failures are wrapped so that errors.Is(err, ErrEmbedding) holds; callers
// never receive a partial result. EmbedChunks enforces the count
// postcondition for callers that hold chunks.
//
// # Batching
//
// BatchEmbedder wraps any Embedder, splitting large inputs into batches that
// run on an ants worker pool under a golang.org/x/time/rate limit.
//
//	inner, err := ollama.NewEmbedder(cfg)
//	batched, err := ai.NewBatchEmbedderFromConfig(inner, cfg)
//	defer batched.Release()
//	vectors, err := batched.EmbedTexts(ctx, texts)
package ai
