package chunking

import "errors"

var (
	// ErrInvalidParams is returned when chunk size or overlap are out of range.
	ErrInvalidParams = errors.New("invalid chunking parameters")

	// ErrUnknownChunker is returned by Lookup for unrecognised names.
	ErrUnknownChunker = errors.New("unknown chunker")
)
