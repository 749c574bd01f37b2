// Package retry provides the shared exponential-backoff policy applied to
// every stage adapter invocation.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Policy configures retry behavior for one operation.
type Policy struct {
	// MaxAttempts caps the total number of invocations, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles after each
	// failed attempt.
	BaseDelay time.Duration
}

// DefaultPolicy returns the standard policy: 3 attempts, 500ms base delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// ExhaustedError is returned when all attempts failed with transient errors.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do runs op under the policy. Only errors classified stage.Transient are
// retried; permanent errors and context cancellation return immediately.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry: context cancelled: %w", ctx.Err())
			case <-time.After(delay):
				delay *= 2
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !stage.IsTransient(err) {
			return err
		}
		lastErr = err
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Last: lastErr}
}
