package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

// Classifier reports whether an error is transient and worth retrying.
type Classifier func(err error) bool

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// IsTransient is the default classifier: only rate limiting is retried.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// Sleep waits on a timer and returns early with the context error.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Operation wraps calls to one external service with retries.
// It is safe for concurrent use; counters are shared by all callers.
type Operation struct {
	name      string
	policy    Policy
	logger    ports.Logger
	transient Classifier
	sleep     SleepFunc
	limiter   *RateLimiter

	attempts    atomic.Int64
	rateLimited atomic.Int64
	succeeded   atomic.Int64
	exhausted   atomic.Int64
	permanent   atomic.Int64
}

// Option configures an Operation.
type Option func(*Operation)

// WithClassifier replaces the transient error classifier.
func WithClassifier(c Classifier) Option {
	return func(o *Operation) { o.transient = c }
}

// WithSleep replaces the backoff sleep.
func WithSleep(s SleepFunc) Option {
	return func(o *Operation) { o.sleep = s }
}

// WithRateLimiter makes every attempt wait on a shared limiter and penalizes
// the limiter when the service throttles.
func WithRateLimiter(l *RateLimiter) Option {
	return func(o *Operation) { o.limiter = l }
}

// NewOperation creates an Operation named name.
func NewOperation(name string, policy Policy, logger ports.Logger, opts ...Option) *Operation {
	o := &Operation{
		name:      name,
		policy:    policy,
		logger:    logger,
		transient: IsTransient,
		sleep:     Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the operation name used in logs and metrics.
func (o *Operation) Name() string {
	return o.name
}

// Do calls fn until it succeeds, fails permanently, or retries run out.
// key identifies the call in log lines, e.g. the URL being fetched.
func (o *Operation) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return zerr.With(zerr.Wrap(err, "rate limiter wait interrupted"), "key", key)
			}
		}

		o.attempts.Add(1)
		err := fn(ctx)
		if err == nil {
			o.succeeded.Add(1)
			return nil
		}

		if !o.transient(err) {
			o.permanent.Add(1)
			return err
		}
		o.rateLimited.Add(1)

		if attempt >= o.policy.MaxRetries {
			o.exhausted.Add(1)
			o.logger.Warn("retries exhausted",
				"operation", o.name,
				"key", key,
				"attempts", attempt+1,
				"error", err.Error(),
			)
			return zerr.With(zerr.Wrap(err, "retries exhausted"), "attempts", attempt+1)
		}

		delay := o.policy.Delay(attempt)
		if o.limiter != nil {
			o.limiter.Penalize(delay)
		}
		o.logger.Info("rate limited, retrying",
			"operation", o.name,
			"key", key,
			"attempt", attempt+1,
			"delay", delay.String(),
		)
		if err := o.sleep(ctx, delay); err != nil {
			return zerr.With(zerr.Wrap(err, "retry interrupted"), "key", key)
		}
	}
}

// Run is Do for calls that return a value.
func Run[T any](ctx context.Context, o *Operation, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := o.Do(ctx, key, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Stats returns the operation's counters.
func (o *Operation) Stats() domain.RetryStats {
	return domain.RetryStats{
		Operation:     o.name,
		TotalAttempts: o.attempts.Load(),
		RateLimited:   o.rateLimited.Load(),
		Succeeded:     o.succeeded.Load(),
		Exhausted:     o.exhausted.Load(),
		Permanent:     o.permanent.Load(),
	}
}
