package config

import "errors"

// ErrInvalid wraps every validation failure reported by Load and Validate.
var ErrInvalid = errors.New("invalid configuration")
