// Package health combines daemon state and handler metrics into the health
// snapshot and metrics report served to operators.
package health

import (
	"cmp"
	"slices"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/engine/metrics"
)

// DaemonInfo is the daemon-level input of an aggregation.
type DaemonInfo struct {
	State     domain.DaemonState
	PID       int
	StartedAt time.Time
}

// Aggregate builds a HealthSnapshot. It is a pure function of its inputs.
//
// The snapshot is healthy only when the daemon is running and every handler is
// healthy. It is degraded when any handler reports degraded performance.
func Aggregate(info DaemonInfo, handlers []ports.Handler, now time.Time) domain.HealthSnapshot {
	daemonOK := info.State == domain.StateRunning
	snap := domain.HealthSnapshot{
		IsHealthy: daemonOK,
		Daemon: domain.DaemonHealth{
			IsHealthy:  daemonOK,
			StatusCode: statusCode(daemonOK),
			State:      info.State,
			PID:        info.PID,
		},
		Handlers:    make(map[string]domain.HandlerHealth, len(handlers)),
		GeneratedAt: now,
	}
	if daemonOK && !info.StartedAt.IsZero() {
		snap.Daemon.Uptime = now.Sub(info.StartedAt).Seconds()
	}

	for _, h := range handlers {
		hh := h.Health()
		snap.Handlers[h.Name()] = hh
		if !hh.IsHealthy {
			snap.IsHealthy = false
		}
		if hh.PerformanceDegraded {
			snap.PerformanceDegraded = true
		}
	}
	snap.StatusCode = statusCode(snap.IsHealthy)
	return snap
}

// Report builds the structured metrics export.
func Report(info DaemonInfo, handlers []ports.Handler, now time.Time) domain.MetricsReport {
	rep := domain.MetricsReport{
		Ready:       info.State == domain.StateRunning,
		State:       info.State,
		Handlers:    make(map[string]domain.HandlerReport, len(handlers)),
		GeneratedAt: now,
	}

	for _, h := range handlers {
		m := h.Metrics()
		samples := make([]float64, len(m.ProcessingTimes))
		for i, d := range m.ProcessingTimes {
			samples[i] = d.Seconds()
		}
		rep.Handlers[h.Name()] = domain.HandlerReport{
			HandlerType: h.Type(),
			Performance: domain.PerformanceReport{
				EventsProcessed:          m.EventsProcessed,
				EventsFailed:             m.EventsFailed,
				SlowProcessingEvents:     m.SlowProcessingEvents,
				AvgProcessingTimeSeconds: m.Avg.Seconds(),
				MinProcessingTimeSeconds: m.Min.Seconds(),
				MaxProcessingTimeSeconds: m.Max.Seconds(),
				P95ProcessingTimeSeconds: m.P95.Seconds(),
				ThresholdSeconds:         m.PerformanceThreshold.Seconds(),
				SuccessRate:              m.SuccessRate(),
			},
			Samples:   samples,
			SampleSum: m.Sum.Seconds(),
			Healthy:   healthOf(h, m).IsHealthy,
		}

		if rr, ok := h.(ports.RetryReporter); ok {
			rep.Retries = append(rep.Retries, rr.RetryStats()...)
		}
	}

	slices.SortFunc(rep.Retries, func(a, b domain.RetryStats) int {
		return cmp.Compare(a.Operation, b.Operation)
	})
	return rep
}

// evaluator is implemented by handlers whose health is metrics.Evaluate over their own
// tracker options.
type evaluator interface {
	HealthOptions() metrics.Options
}

// healthOf evaluates h against the snapshot m already taken, so the verdict matches the
// counters reported next to it.
func healthOf(h ports.Handler, m domain.ProcessingMetrics) domain.HandlerHealth {
	if e, ok := h.(evaluator); ok {
		return metrics.Evaluate(m, e.HealthOptions())
	}
	return h.Health()
}

func statusCode(healthy bool) int {
	if healthy {
		return domain.StatusCodeHealthy
	}
	return domain.StatusCodeUnhealthy
}
