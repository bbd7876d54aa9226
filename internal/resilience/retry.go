package resilience

import (
	"context"
	"math"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/rng"
)

// RetryConfig configures exponential backoff with full jitter: delay =
// initial * multiplier^attempt, clamped to MaxDelay, then scaled by a
// uniform draw in [0.5, 1.5].
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Source       rng.Source
}

// DefaultRetryConfig returns the engine's baseline retry policy
// (max_attempts=3, multiplier=2.0, max_delay=30s). InitialDelay is kept
// short so tests exercise multiple backoff steps quickly.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 200 * time.Millisecond
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Source == nil {
		c.Source = rng.NewSource(time.Now().UnixNano())
	}
}

// BackoffDelay returns the delay before the (attempt+1)th call, following
// the full-jitter formula: min(initial*multiplier^attempt, max) * U[0.5,1.5].
func BackoffDelay(cfg RetryConfig, attempt int) time.Duration {
	base := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if base > float64(cfg.MaxDelay) {
		base = float64(cfg.MaxDelay)
	}
	jitter := rng.InRange(cfg.Source, 0.5, 1.5)
	return time.Duration(base * jitter)
}

// Retry runs op, retrying recoverable failures up to MaxAttempts times
// with full-jitter exponential backoff between attempts. A context
// cancellation aborts immediately. Non-retryable errors (IsRecoverable
// == false) abort without consuming further attempts.
func Retry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	cfg.applyDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRecoverable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := BackoffDelay(cfg, attempt)
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
