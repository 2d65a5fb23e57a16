// Package resilience provides jittered retries, a circuit breaker and
// per-call timeouts for calls to external dependencies.
package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
)

// Unlimited as RetryConfig.MaxAttempts retries until fn succeeds, ShouldRetry
// refuses, or ctx is done.
const Unlimited = -1

type RetryConfig struct {
	// MaxAttempts bounds the number of calls. Zero means 3.
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// ShouldRetry reports whether err is worth another attempt. Nil retries
	// every error.
	ShouldRetry func(err error) bool
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

func (cfg RetryConfig) exhausted(attempt int) bool {
	return cfg.MaxAttempts != Unlimited && attempt >= cfg.MaxAttempts
}

// Retry calls fn until it succeeds or the attempt budget is spent, sleeping
// an exponentially growing, jittered delay between calls.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := logger.WithComponent("retry", "operation", name)

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return err
		}
		if cfg.exhausted(attempt) {
			return fmt.Errorf("all %d attempts failed for %s: %w", attempt, name, err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay := computeDelay(attempt, cfg)
		log.Warn("operation failed, retrying", "attempt", attempt, "error", err, "next_delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff: %w", ctx.Err())
		}
	}
}

func computeDelay(attempt int, cfg RetryConfig) time.Duration {
	// Cap the exponent so long unlimited runs cannot overflow.
	exp := math.Min(float64(attempt-1), 32)
	backoff := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, exp)
	backoff += backoff * cfg.JitterFraction * (2*rand.Float64() - 1)
	switch {
	case backoff > float64(cfg.MaxDelay):
		return cfg.MaxDelay
	case backoff < 0:
		return cfg.InitialDelay
	}
	return time.Duration(backoff)
}
