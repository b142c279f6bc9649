// Package retry provides a bounded retry-with-exponential-backoff policy.
// Retry semantics live here so callers keep them out of business logic:
// wrap the fallible operation in Policy.Do and handle the final error.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy configures bounded retries. Delay is multiplied by Backoff after
// each failed attempt.
type Policy struct {
	// Tries is the number of retries after the first attempt.
	Tries int

	// Delay is the wait before the first retry. Must be positive when
	// Tries > 0.
	Delay time.Duration

	// Backoff is the delay multiplier applied after each failed attempt.
	// Must be greater than 1.
	Backoff float64
}

// DefaultPolicy matches the coordinator-call defaults used across workers.
func DefaultPolicy() Policy {
	return Policy{Tries: 3, Delay: 500 * time.Millisecond, Backoff: 2}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	if p.Tries < 0 {
		return fmt.Errorf("retry: tries must be >= 0, got %d", p.Tries)
	}
	if p.Tries > 0 && p.Delay <= 0 {
		return fmt.Errorf("retry: delay must be positive, got %s", p.Delay)
	}
	if p.Tries > 0 && p.Backoff <= 1 {
		return fmt.Errorf("retry: backoff must be > 1, got %g", p.Backoff)
	}
	return nil
}

// Do runs op, retrying up to Tries times with exponential backoff.
// It returns the last error once attempts are exhausted, or the context
// error if ctx is cancelled while waiting.
func (p Policy) Do(ctx context.Context, op func() error) error {
	delay := p.Delay

	var err error
	for attempt := 0; attempt <= p.Tries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * p.Backoff)
		}

		if err = op(); err == nil {
			return nil
		}
	}
	return err
}
