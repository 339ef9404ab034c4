package ingestion

import (
	"context"
	"strings"

	"github.com/poiesic/vectorize/core"
)

// Validator accepts or rejects content before it is chunked.
type Validator interface {
	Validate(ctx context.Context, text string) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, text string) error

func (f ValidatorFunc) Validate(ctx context.Context, text string) error {
	return f(ctx, text)
}

// NoopValidator accepts everything.
type NoopValidator struct{}

func (NoopValidator) Validate(context.Context, string) error { return nil }

// NonEmptyValidator rejects blank content with core.ErrEmptyContent.
type NonEmptyValidator struct{}

func (NonEmptyValidator) Validate(_ context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return core.ErrEmptyContent
	}
	return nil
}
