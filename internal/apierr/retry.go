package apierr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default backoff delays. Connection resets and suspected quota problems
// get the long base delay; everything else retries faster.
const (
	ShortBaseDelay  = 2 * time.Second
	LongBaseDelay   = 5 * time.Second
	DefaultMaxDelay = 30 * time.Second
)

// RetryConfig holds retry parameters for exponential backoff.
//
// All fields must be non-negative. Invalid values are normalized:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// BaseFor, when set, picks the base delay from the error that triggered
	// the retry. It overrides BaseDelay.
	BaseFor func(error) time.Duration
}

// normalize ensures all RetryConfig fields have valid values.
func (c *RetryConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// BaseDelayFor returns the backoff base delay for a classified error:
// LongBaseDelay for rate limits, suspected quota problems, and connection
// resets; ShortBaseDelay otherwise.
func BaseDelayFor(err error) time.Duration {
	if errors.Is(err, ErrRateLimit) || errors.Is(err, ErrQuotaExceeded) || IsConnReset(err) {
		return LongBaseDelay
	}
	return ShortBaseDelay
}

// RetryWithBackoff executes fn with exponential backoff retry.
// It retries only if shouldRetry returns true for the error.
// The delay before retry i is min(base * 2^(i-1), MaxDelay).
// Returns the result of the last attempt.
//
// Invalid RetryConfig values are normalized (see RetryConfig documentation).
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			base := cfg.BaseDelay
			if cfg.BaseFor != nil {
				base = cfg.BaseFor(lastErr)
			}
			delay := base << (attempt - 1)
			if delay > cfg.MaxDelay || delay <= 0 {
				delay = cfg.MaxDelay
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}
