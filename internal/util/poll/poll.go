// Package poll provides a bounded polling helper shared by readiness checks.
//
// It replaces ad hoc sleep loops with a single utility parameterized by
// predicate, interval, and timeout. There is no unbounded wait: every call
// either observes the condition, times out, or is cancelled.
package poll

import (
	"context"
	"fmt"
	"time"
)

// Condition reports whether the awaited state has been reached.
// A non-nil error aborts polling immediately.
type Condition func(ctx context.Context) (done bool, err error)

// TimeoutError reports that the condition did not hold within the bound.
type TimeoutError struct {
	What    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
}

// Until evaluates cond every interval until it returns true, it returns an
// error, the timeout elapses, or the context is cancelled. The condition is
// checked once immediately before the first wait.
func Until(ctx context.Context, what string, interval, timeout time.Duration, cond Condition) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return &TimeoutError{What: what, Timeout: timeout}
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
