// Package metrics records per-handler processing durations and outcomes and
// derives handler health from them.
package metrics

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options bound the rolling window and the health rules of a Tracker.
type Options struct {
	WindowSize             int
	Threshold              time.Duration
	MinSuccessRate         float64
	MaxConsecutiveFailures int
	SlowEventLimit         int
}

// DefaultOptions returns the defaults used when a handler config sets nothing.
func DefaultOptions() Options {
	return Options{
		WindowSize:             domain.DefaultWindowSize,
		Threshold:              domain.DefaultPerformanceThreshold,
		MinSuccessRate:         domain.DefaultMinSuccessRate,
		MaxConsecutiveFailures: domain.DefaultMaxConsecutiveFails,
		SlowEventLimit:         domain.DefaultSlowEventLimit,
	}
}

// OptionsFromConfig reads tracker options from a handler's config block.
func OptionsFromConfig(hc domain.HandlerConfig) Options {
	def := DefaultOptions()
	return Options{
		WindowSize:             hc.Int("window_size", def.WindowSize),
		Threshold:              hc.Duration("performance_threshold", def.Threshold),
		MinSuccessRate:         hc.Float("min_success_rate", def.MinSuccessRate),
		MaxConsecutiveFailures: hc.Int("max_consecutive_failures", def.MaxConsecutiveFailures),
		SlowEventLimit:         hc.Int("slow_event_limit", def.SlowEventLimit),
	}
}

// Tracker is a concurrency-safe recorder for one handler.
type Tracker struct {
	name   string
	opts   Options
	logger ports.Logger

	mu          sync.Mutex
	ring        []time.Duration
	head        int
	size        int
	processed   int64
	failed      int64
	consecutive int64
	slow        int64
	last        time.Time
}

// NewTracker creates a Tracker. Non-positive window sizes fall back to the default.
func NewTracker(name string, opts Options, logger ports.Logger) *Tracker {
	if opts.WindowSize <= 0 {
		opts.WindowSize = domain.DefaultWindowSize
	}
	return &Tracker{
		name:   name,
		opts:   opts,
		logger: logger,
		ring:   make([]time.Duration, opts.WindowSize),
	}
}

// Options returns the tracker's options.
func (t *Tracker) Options() Options {
	return t.opts
}

// Record adds one invocation. A nil err counts as processed.
func (t *Tracker) Record(elapsed time.Duration, err error) {
	slow := t.opts.Threshold > 0 && elapsed > t.opts.Threshold

	t.mu.Lock()
	t.ring[t.head] = elapsed
	t.head = (t.head + 1) % len(t.ring)
	if t.size < len(t.ring) {
		t.size++
	}
	if err != nil {
		t.failed++
		t.consecutive++
	} else {
		t.processed++
		t.consecutive = 0
	}
	if slow {
		t.slow++
	}
	t.last = time.Now()
	t.mu.Unlock()

	if slow && t.logger != nil {
		t.logger.Warn("slow event processing",
			"handler", t.name,
			"duration", elapsed.String(),
			"threshold", t.opts.Threshold.String(),
		)
	}
}

// Snapshot returns a copy of the counters and the window with summary statistics.
func (t *Tracker) Snapshot() domain.ProcessingMetrics {
	t.mu.Lock()
	window := make([]time.Duration, t.size)
	start := (t.head - t.size + len(t.ring)) % len(t.ring)
	for i := range t.size {
		window[i] = t.ring[(start+i)%len(t.ring)]
	}
	m := domain.ProcessingMetrics{
		EventsProcessed:      t.processed,
		EventsFailed:         t.failed,
		ConsecutiveFailures:  t.consecutive,
		SlowProcessingEvents: t.slow,
		ProcessingTimes:      window,
		WindowSize:           len(t.ring),
		PerformanceThreshold: t.opts.Threshold,
		LastEventAt:          t.last,
	}
	t.mu.Unlock()

	if len(window) == 0 {
		return m
	}

	secs := make([]float64, len(window))
	for i, d := range window {
		secs[i] = d.Seconds()
		if t.opts.Threshold > 0 && d > t.opts.Threshold {
			m.SlowInWindow++
		}
	}
	m.Avg = seconds(stat.Mean(secs, nil))
	m.Min = slices.Min(window)
	m.Max = slices.Max(window)
	m.Sum = seconds(floats.Sum(secs))

	sorted := slices.Clone(secs)
	slices.Sort(sorted)
	m.P95 = seconds(stat.Quantile(0.95, stat.Empirical, sorted, nil))
	return m
}

// Health evaluates the handler's health from a fresh snapshot.
func (t *Tracker) Health() domain.HandlerHealth {
	return Evaluate(t.Snapshot(), t.opts)
}

// Evaluate applies the health rules to a metrics snapshot.
//
// A handler is unhealthy when its success rate falls below MinSuccessRate or it
// failed MaxConsecutiveFailures times in a row. It is degraded, but still healthy,
// when the window average exceeds the threshold or too many window entries are slow.
func Evaluate(m domain.ProcessingMetrics, opts Options) domain.HandlerHealth {
	h := domain.HandlerHealth{
		IsHealthy:         true,
		Status:            domain.HandlerHealthy,
		EventsProcessed:   m.EventsProcessed,
		EventsFailed:      m.EventsFailed,
		AvgProcessingTime: m.Avg.Seconds(),
	}

	if opts.Threshold > 0 && m.Avg > opts.Threshold {
		h.PerformanceDegraded = true
		h.Reason = fmt.Sprintf("average processing time %s exceeds %s", m.Avg, opts.Threshold)
	} else if opts.SlowEventLimit > 0 && m.SlowInWindow >= opts.SlowEventLimit {
		h.PerformanceDegraded = true
		h.Reason = fmt.Sprintf("%d of the last %d events were slow", m.SlowInWindow, len(m.ProcessingTimes))
	}
	if h.PerformanceDegraded {
		h.Status = domain.HandlerDegraded
	}

	rate := m.SuccessRate()
	switch {
	case rate < opts.MinSuccessRate:
		h.IsHealthy = false
		h.Status = domain.HandlerUnhealthy
		h.Reason = fmt.Sprintf("success rate %.2f below %.2f", rate, opts.MinSuccessRate)
	case opts.MaxConsecutiveFailures > 0 && m.ConsecutiveFailures >= int64(opts.MaxConsecutiveFailures):
		h.IsHealthy = false
		h.Status = domain.HandlerUnhealthy
		h.Reason = fmt.Sprintf("%d consecutive failures", m.ConsecutiveFailures)
	}
	return h
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
