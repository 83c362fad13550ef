package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig holds tuning knobs for [Retry].
type RetryConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// Attempts is the total number of tries, including the first.
	// Default: 3.
	Attempts int

	// BaseDelay is the wait before the second attempt; each further wait
	// doubles it. Default: 2s.
	BaseDelay time.Duration
}

// Retry runs fn up to cfg.Attempts times, sleeping with exponential
// backoff between attempts. It stops early when fn succeeds or ctx is
// canceled, and returns the last error otherwise.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}

	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}

		delay := cfg.BaseDelay << (attempt - 1)
		slog.Warn("retrying after failure",
			"name", cfg.Name,
			"attempt", attempt,
			"max_attempts", cfg.Attempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", cfg.Name, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %d attempts failed: %w", cfg.Name, cfg.Attempts, err)
}
