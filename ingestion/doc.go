// Package ingestion orchestrates the path from content to stored vectors.
//
// A Pipeline runs four stages in order:
//   - validate: the configured Validator accepts or rejects the content
//   - chunk: flat text goes through the strategy selector (or an explicit
//     chunker); artifacts are built into a graph and assembled
//   - embed: every chunk is embedded, one vector per chunk
//   - persist: records are written to the vector store in one batch
//
// The first failing stage stops the ingestion and is reported as a
// *StageError. Nothing is retried, and records already written by a failed
// persist are not rolled back; callers reingest under the same id to repair.
package ingestion
