package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a compact content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ArtifactType identifies the kind of payload an artifact carries.
type ArtifactType string

const (
	// ArtifactText is a block of native text.
	ArtifactText ArtifactType = "text"
	// ArtifactImage is an embedded image, optionally with recovered text.
	ArtifactImage ArtifactType = "image"
)

// IsValid reports whether t is a known artifact type.
func (t ArtifactType) IsValid() bool {
	return t == ArtifactText || t == ArtifactImage
}

// ArtifactID derives a stable artifact identifier from its position in a source.
// The same source, page and order always yield the same id.
func ArtifactID(source string, page, order int) string {
	return fmt.Sprintf("%016x:p%d:o%d", uint64(IDFromContent(source)), page, order)
}

// Artifact is an immutable unit of extracted content.
type Artifact struct {
	// ID is stable and derived from the artifact's source position.
	ID   string
	Type ArtifactType
	// Text holds native text for text artifacts and recovered text for images.
	Text string
	// Data holds raw image bytes. Empty for text artifacts.
	Data       []byte
	MimeType   string
	SourceName string
	// PageNumber is 1-based.
	PageNumber int
	// OrderIndex is the artifact's position within its page.
	OrderIndex int
}

// HasText reports whether the artifact carries a non-blank text payload.
func (a *Artifact) HasText() bool {
	for _, r := range a.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != '\f' && r != '\v' {
			return true
		}
	}
	return false
}

// Metadata keys every assembled chunk carries.
const (
	MetaChunkStrategy      = "chunk_strategy"
	MetaChunkerName        = "chunker_name"
	MetaChunkerParams      = "chunker_params"
	MetaSourceFile         = "source_file"
	MetaPageNumbers        = "page_numbers"
	MetaArtifactIDs        = "artifact_ids"
	MetaAssociatedImageIDs = "associated_image_ids"
)

// UnknownStrategy is recorded when a chunk carries no strategy label.
const UnknownStrategy = "unknown"

// StrategyKeys are present on every chunk, flat or assembled.
var StrategyKeys = []string{MetaChunkStrategy, MetaChunkerName, MetaChunkerParams}

// AssembledKeys are present on every chunk produced from an artifact graph.
var AssembledKeys = []string{
	MetaChunkStrategy,
	MetaChunkerName,
	MetaChunkerParams,
	MetaSourceFile,
	MetaPageNumbers,
	MetaArtifactIDs,
	MetaAssociatedImageIDs,
}

// Chunk is a contiguous span of content prepared for embedding.
type Chunk struct {
	ID string
	// Index is the chunk's position among the chunks of one content.
	Index   int
	Content string
	// Start and End are byte offsets of Content within the chunked text.
	Start    int
	End      int
	Metadata Metadata
}

// Strategy returns the chunk's strategy label, or UnknownStrategy if absent.
func (c *Chunk) Strategy() string {
	if v, ok := c.Metadata.Get(MetaChunkStrategy); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return UnknownStrategy
}

// VectorMetadata describes the chunk a vector was computed from.
type VectorMetadata struct {
	IngestionID   string
	ChunkID       string
	ChunkIndex    int
	ChunkStrategy string
	ChunkText     string
	// SourceMetadata is an open map of provenance attributes. May be empty.
	SourceMetadata map[string]any
	Provider       string
}

// VectorRecord is a persisted embedding with its metadata.
type VectorRecord struct {
	Vector   []float32
	Metadata VectorMetadata
	// CreatedAt is assigned by the store.
	CreatedAt time.Time
}

// SearchResult pairs a record with its similarity to a query.
type SearchResult struct {
	Record *VectorRecord
	Score  float32
}
