package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{
			name:   "default policy",
			policy: DefaultPolicy(),
		},
		{
			name:   "zero tries needs no delay",
			policy: Policy{Tries: 0},
		},
		{
			name:    "negative tries",
			policy:  Policy{Tries: -1, Delay: time.Second, Backoff: 2},
			wantErr: true,
		},
		{
			name:    "zero delay with retries",
			policy:  Policy{Tries: 2, Delay: 0, Backoff: 2},
			wantErr: true,
		},
		{
			name:    "backoff not greater than one",
			policy:  Policy{Tries: 2, Delay: time.Millisecond, Backoff: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicy_Do_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := Policy{Tries: 3, Delay: time.Millisecond, Backoff: 2}

	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Do_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	p := Policy{Tries: 5, Delay: time.Millisecond, Backoff: 2}

	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_Do_ExhaustsTries(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	p := Policy{Tries: 2, Delay: time.Millisecond, Backoff: 2}

	err := p.Do(context.Background(), func() error {
		calls++
		return wantErr
	})

	require.Error(t, err)
	assert.Equal(t, wantErr, err)
	// First attempt plus two retries.
	assert.Equal(t, 3, calls)
}

func TestPolicy_Do_ZeroTriesRunsOnce(t *testing.T) {
	calls := 0
	p := Policy{Tries: 0}

	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Do_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Tries: 10, Delay: time.Hour, Backoff: 2}

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func() error { return errors.New("down") })
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}
