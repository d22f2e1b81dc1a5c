// Package retry runs calls to external services with exponential backoff and
// shared rate limiting.
package retry

import (
	"math"
	"time"

	"go.trai.ch/tend/internal/core/domain"
)

// Policy computes the delay before each retry.
type Policy struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultPolicy returns 3 retries starting at 5s, doubling, capped at 60s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: domain.DefaultMaxRetries,
		BaseDelay:  domain.DefaultBaseDelay,
		MaxDelay:   domain.DefaultMaxDelay,
		Multiplier: domain.DefaultBackoffMultiplier,
	}
}

// PolicyFromConfig converts the configured retry block into a Policy.
func PolicyFromConfig(cfg domain.RetryConfig) Policy {
	return Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Multiplier: cfg.Multiplier,
	}
}

// Delay returns min(base * multiplier^attempt, max) for a zero-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	delay := float64(p.BaseDelay) * math.Pow(mult, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
