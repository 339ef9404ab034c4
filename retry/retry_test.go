package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(opts ...Option) []Option {
	return append([]Option{WithBaseDelay(time.Millisecond)}, opts...)
}

func TestWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		return nil
	}, fast()...)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, fast(WithMaxAttempts(5))...)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		return expectedErr
	}, fast(WithMaxAttempts(3))...)
	assert.Equal(t, expectedErr, err, "should return the last error")
	assert.Equal(t, 3, attempts, "should attempt exactly max attempts times")
}

func TestWithBackoff_Permanent(t *testing.T) {
	cause := errors.New("bad input")
	attempts := 0
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(fmt.Errorf("wrapped: %w", cause))
	}, fast(WithMaxAttempts(5))...)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestWithBackoff_Retryable(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	err := WithBackoff(context.Background(), func(context.Context) error {
		attempts++
		if attempts == 2 {
			return fatal
		}
		return errors.New("transient")
	}, fast(WithMaxAttempts(5), WithRetryable(func(err error) bool {
		return !errors.Is(err, fatal)
	}))...)
	assert.Equal(t, fatal, err)
	assert.Equal(t, 2, attempts)
}

func TestWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithBackoff(ctx, func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, fast(WithMaxAttempts(10))...)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts, "should stop when context is canceled")
}

func TestWithBackoff_ContextDeadlineDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	err := WithBackoff(ctx, func(context.Context) error {
		attempts++
		return errors.New("error")
	}, WithMaxAttempts(10), WithBaseDelay(time.Second))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_InvalidPolicy(t *testing.T) {
	attempts := 0
	op := func(context.Context) error {
		attempts++
		return errors.New("error")
	}

	assert.ErrorIs(t, WithBackoff(context.Background(), op, WithMaxAttempts(0)), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, WithBackoff(context.Background(), op, WithMaxAttempts(-1)), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, WithBackoff(context.Background(), op, WithBaseDelay(-time.Second)), ErrInvalidDelay)
	assert.Equal(t, 0, attempts, "should not attempt with an invalid policy")
}

func TestPolicy_Delay(t *testing.T) {
	p := NewPolicy(WithBaseDelay(100*time.Millisecond), WithMaxDelay(time.Second))
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, 800*time.Millisecond, p.Delay(4))
	assert.Equal(t, time.Second, p.Delay(5))
	assert.Equal(t, time.Second, p.Delay(40))

	uncapped := NewPolicy(WithBaseDelay(time.Millisecond), WithMaxDelay(0))
	assert.Equal(t, 8*time.Millisecond, uncapped.Delay(4))
}

func TestNewPolicy_Defaults(t *testing.T) {
	p := NewPolicy()
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultBaseDelay, p.BaseDelay)
	assert.Equal(t, DefaultMaxDelay, p.MaxDelay)
	assert.Nil(t, p.Retryable)
}
