// Package retry provides bounded exponential backoff for transient failures.
package retry

import (
	"context"
	"math"
	"time"
)

// Config holds retry behavior.
type Config struct {
	MaxAttempts int           // Total attempts including the first
	InitialWait time.Duration // Wait before the first retry
	MaxWait     time.Duration // Ceiling for a single wait
	Multiplier  float64       // Backoff multiplier
}

// DefaultConfig matches the engine policy: a small fixed number of attempts
// before the failure is surfaced to the user.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// Backoff returns the wait before retry number attempt (1-based).
func (c *Config) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	backoff := float64(c.InitialWait) * math.Pow(c.Multiplier, float64(attempt-1))
	if backoff > float64(c.MaxWait) {
		backoff = float64(c.MaxWait)
	}
	return time.Duration(backoff)
}

// Permanent wraps an error that must not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Do runs fn up to MaxAttempts times with exponential backoff between
// attempts. A *Permanent error or context cancellation stops immediately.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if perm, ok := err.(*Permanent); ok {
			return perm.Err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(cfg.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
