package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	var calls []int
	err := Do(context.Background(), Policy{MaxAttempts: 3}, func(ctx context.Context, attempt int) error {
		calls = append(calls, attempt)
		if attempt < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3}, func(ctx context.Context, attempt int) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, errTransient)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("page crashed")
	calls := 0
	err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}, func(ctx context.Context, attempt int) error {
		calls++
		return fatal
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, fatal)
	assert.False(t, IsExhausted(err))
}

func TestDo_AttemptTimeout(t *testing.T) {
	var deadlines int
	err := Do(context.Background(), Policy{MaxAttempts: 2, AttemptTimeout: 20 * time.Millisecond},
		func(ctx context.Context, attempt int) error {
			if _, ok := ctx.Deadline(); ok {
				deadlines++
			}
			<-ctx.Done()
			return ctx.Err()
		})

	assert.Equal(t, 2, deadlines)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_ParentCancellationIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 3}, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errTransient
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errTransient)
	assert.False(t, IsExhausted(err))
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, func(ctx context.Context, attempt int) error {
		calls++
		return errTransient
	})
	assert.Equal(t, 1, calls)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
