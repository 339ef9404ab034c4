package pgvector

import "errors"

// ErrInvalidConfig indicates a Config missing its DSN or dimension.
var ErrInvalidConfig = errors.New("invalid pgvector config")
