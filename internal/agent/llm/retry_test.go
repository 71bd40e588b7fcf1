package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veer19/flow-ai-api/internal/agent/model"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit marker", fmt.Errorf("call failed: %w", ErrTransient), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"rate limit text", errors.New("openai: rate limit exceeded"), true},
		{"429 text", errors.New("unexpected status code: 429"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"upstream 503", errors.New("status 503 service unavailable"), true},
		{"plain failure", errors.New("invalid api key"), false},
		{"parse error", &ParseError{Reason: "no JSON object found"}, false},
		{"wrapped parse error", fmt.Errorf("classify: %w", &ParseError{Reason: "invalid JSON object"}), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestNewRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(model.RetryConfig{})
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 4*time.Second, p.MaxDelay)
}

func TestBackoffBounds(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		Jitter:      300 * time.Millisecond,
	}

	for attempt := 0; attempt < 8; attempt++ {
		d := p.Backoff(attempt)
		assert.GreaterOrEqual(t, d, p.BaseDelay, "attempt %d below base", attempt)
		assert.LessOrEqual(t, d, p.MaxDelay, "attempt %d above cap", attempt)
	}

	// Without jitter the schedule is exactly exponential until the cap.
	exact := RetryPolicy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
	assert.Equal(t, 500*time.Millisecond, exact.Backoff(0))
	assert.Equal(t, time.Second, exact.Backoff(1))
	assert.Equal(t, 2*time.Second, exact.Backoff(2))
	assert.Equal(t, 4*time.Second, exact.Backoff(3))
	assert.Equal(t, 4*time.Second, exact.Backoff(4))
}

func TestDoRetriesTransientFailures(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("attempt %d: %w", calls, ErrTransient)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonTransient(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	permanent := errors.New("invalid api key")
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoReturnsFinalErrorUnmodified(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	final := fmt.Errorf("still failing: %w", ErrTransient)
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return final
	})
	assert.ErrorIs(t, err, final)
	assert.Equal(t, 2, calls)
}

func TestDoHonoursCancellationDuringBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func(ctx context.Context) error {
		return fmt.Errorf("flaky: %w", ErrTransient)
	})
	assert.ErrorIs(t, err, context.Canceled)
}
