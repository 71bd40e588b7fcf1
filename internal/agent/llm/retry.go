package llm

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	logx "github.com/Veer19/flow-ai-api/pkg/logger"

	"github.com/Veer19/flow-ai-api/internal/agent/model"
)

// ErrTransient marks an error as retryable regardless of its text. Provider
// adapters and tests can wrap with it explicitly.
var ErrTransient = errors.New("transient provider error")

// transientMarkers are matched against lowercased provider error text. The
// eino model components surface HTTP failures as opaque errors, so class
// detection is by message.
var transientMarkers = []string{
	"rate limit",
	"too many requests",
	"429",
	"connection reset",
	"connection refused",
	"broken pipe",
	"timeout",
	"timed out",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
	"internal server error",
	"service unavailable",
	"bad gateway",
}

// IsTransient reports whether err belongs to the retryable failure class:
// rate limits, connection failures, timeouts and upstream 5xx. Structured
// output parse failures are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perr *ParseError
	if errors.As(err, &perr) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryPolicy retries transient failures with exponential backoff and jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
}

// NewRetryPolicy builds a policy from config, applying defaults for
// non-positive values.
func NewRetryPolicy(cfg model.RetryConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.MaxDelayMS) * time.Millisecond,
		Jitter:      time.Duration(cfg.JitterMS) * time.Millisecond,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 4 * time.Second
	}
	return p
}

// Backoff returns the sleep before retrying after the given zero-based
// attempt: min(MaxDelay, BaseDelay*2^attempt + jitter).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay << uint(attempt)
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do runs op, retrying transient failures up to MaxAttempts. The final
// attempt's error is returned unmodified; non-transient errors propagate
// immediately. The backoff sleep yields to ctx cancellation.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt >= p.MaxAttempts-1 {
			return err
		}
		delay := p.Backoff(attempt)
		logx.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", p.MaxAttempts).
			Dur("delay", delay).
			Msg("Transient provider failure, retrying")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
