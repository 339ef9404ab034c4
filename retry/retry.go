// Package retry re-runs failing operations with exponential backoff.
//
// Pipelines and stores never retry internally; callers that want retries
// wrap whole operations with WithBackoff.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Defaults used when no option overrides them.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
)

// Policy controls WithBackoff.
type Policy struct {
	// MaxAttempts counts the first try.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; it doubles on each retry.
	BaseDelay time.Duration
	// MaxDelay caps the wait between attempts. Zero means no cap.
	MaxDelay time.Duration
	// Retryable decides whether a failure is worth another attempt.
	// Nil retries everything not marked Permanent.
	Retryable func(error) bool
	Logger    *slog.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the total number of attempts.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) { p.MaxAttempts = n }
}

// WithBaseDelay sets the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) { p.BaseDelay = d }
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) { p.MaxDelay = d }
}

// WithRetryable sets the predicate that decides whether to retry an error.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Policy) { p.Retryable = fn }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) { p.Logger = logger }
}

// NewPolicy returns the default policy with opts applied.
func NewPolicy(opts ...Option) Policy {
	p := Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Delay returns the wait before attempt+1, given that attempt (1-based) failed.
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p Policy) validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return ErrInvalidDelay
	}
	return nil
}

// WithBackoff runs operation until it succeeds, fails permanently, runs out
// of attempts or ctx is done. It returns the last operation error, or the
// context error if ctx ended first.
func WithBackoff(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	return Do(ctx, NewPolicy(opts...), operation)
}

// Do is WithBackoff with an explicit policy.
func Do(ctx context.Context, p Policy, operation func(ctx context.Context) error) error {
	if err := p.validate(); err != nil {
		return err
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if IsPermanent(lastErr) || (p.Retryable != nil && !p.Retryable(lastErr)) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		logger.Warn("operation failed, retrying", "attempt", attempt, "max_attempts", p.MaxAttempts, "delay", delay, "err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
