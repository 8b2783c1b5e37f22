// Package retry runs an operation a bounded number of times, each attempt
// under its own deadline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retried operation
type Policy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration // zero means the attempt inherits the caller's deadline
	Backoff        time.Duration // pause between attempts
	Retryable      func(error) bool
}

// ExhaustedError is returned when every attempt failed with a retryable error
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do calls fn until it succeeds, returns a non-retryable error, the caller's
// context ends, or MaxAttempts is reached. attempt is 1-based.
// A nil Retryable treats every error as retryable.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := runAttempt(ctx, p.AttemptTimeout, attempt, fn)
		if err == nil {
			return nil
		}
		last = err

		// The caller gave up; the attempt error is a symptom, not a transient failure
		if ctx.Err() != nil {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		if attempt < p.MaxAttempts {
			if err := Sleep(ctx, p.Backoff); err != nil {
				return err
			}
		}
	}
	return &ExhaustedError{Attempts: p.MaxAttempts, Last: last}
}

func runAttempt(ctx context.Context, timeout time.Duration, attempt int, fn func(context.Context, int) error) error {
	if timeout <= 0 {
		return fn(ctx, attempt)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(actx, attempt)
}

// Sleep waits for d or until ctx ends, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsExhausted reports whether err came from running out of attempts
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}
