package ocr

import "errors"

var (
	// ErrUnknownEngine is returned when a registry has no engine of the requested name.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrDuplicateEngine is returned when two engines share a name.
	ErrDuplicateEngine = errors.New("duplicate OCR engine")

	// ErrEngineRequired is returned when a nil engine is supplied.
	ErrEngineRequired = errors.New("OCR engine required")
)
