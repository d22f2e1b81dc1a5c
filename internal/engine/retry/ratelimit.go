package retry

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/time/rate"
)

// RateLimiter spaces calls to external services and holds a cooldown after
// the service throttles. One limiter is shared by every handler that talks to
// the same service.
type RateLimiter struct {
	limiter *rate.Limiter

	mu            sync.Mutex
	cooldownUntil time.Time
	penalties     int64

	sleep SleepFunc
}

type limiterState struct {
	CooldownUntil time.Time `json:"cooldown_until"`
	Penalties     int64     `json:"penalties"`
}

// NewRateLimiter creates a limiter from configuration. A zero interval disables spacing.
func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		sleep:   Sleep,
	}
}

// Wait blocks until the cooldown has passed and a token is available.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if remaining := r.CooldownRemaining(); remaining > 0 {
		if err := r.sleep(ctx, remaining); err != nil {
			return err
		}
	}
	return r.limiter.Wait(ctx)
}

// Penalize extends the cooldown to at least d from now.
func (r *RateLimiter) Penalize(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.penalties++
	if until := time.Now().Add(d); until.After(r.cooldownUntil) {
		r.cooldownUntil = until
	}
}

// CooldownRemaining returns how long callers still have to wait before the next call.
func (r *RateLimiter) CooldownRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cooldownUntil.IsZero() {
		return 0
	}
	if d := time.Until(r.cooldownUntil); d > 0 {
		return d
	}
	return 0
}

// Penalties returns how many times the limiter was penalized.
func (r *RateLimiter) Penalties() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.penalties
}

// Restore loads a cooldown persisted by a previous run. A missing file is not an error.
func (r *RateLimiter) Restore(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read rate limit state"), "path", path)
	}

	var st limiterState
	if err := json.Unmarshal(data, &st); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to decode rate limit state"), "path", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if st.CooldownUntil.After(r.cooldownUntil) {
		r.cooldownUntil = st.CooldownUntil
	}
	r.penalties += st.Penalties
	return nil
}

// Persist writes the current cooldown to path atomically.
func (r *RateLimiter) Persist(path string) error {
	r.mu.Lock()
	st := limiterState{CooldownUntil: r.cooldownUntil, Penalties: r.penalties}
	r.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		return zerr.Wrap(err, "failed to encode rate limit state")
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create state directory"), "path", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, domain.PrivateFilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write rate limit state"), "path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return zerr.With(zerr.Wrap(err, "failed to replace rate limit state"), "path", path)
	}
	return nil
}
