package extract

import "errors"

var (
	// ErrUnsupportedType is returned when no extractor handles a content type.
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrInvalidEncoding is returned for text that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("content is not valid UTF-8")
)
