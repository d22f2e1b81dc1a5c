// Package exposition renders daemon health and metrics for operators: a Prometheus
// collector for the line form and an HTTP surface serving both forms.
package exposition

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"gonum.org/v1/gonum/stat"
)

var (
	readyDesc = prometheus.NewDesc(
		"tend_daemon_ready", "Whether the daemon is running and dispatching events.", nil, nil)
	stateDesc = prometheus.NewDesc(
		"tend_daemon_state", "Current daemon lifecycle state.", []string{"state"}, nil)
	processingDesc = prometheus.NewDesc(
		"tend_handler_processing_seconds", "Handler processing time over the rolling window.", []string{"handler"}, nil)
	avgDesc = prometheus.NewDesc(
		"tend_handler_processing_seconds_avg", "Average handler processing time over the rolling window.", []string{"handler"}, nil)
	minDesc = prometheus.NewDesc(
		"tend_handler_processing_seconds_min", "Fastest handler processing time in the rolling window.", []string{"handler"}, nil)
	maxDesc = prometheus.NewDesc(
		"tend_handler_processing_seconds_max", "Slowest handler processing time in the rolling window.", []string{"handler"}, nil)
	eventsDesc = prometheus.NewDesc(
		"tend_handler_events_total", "Events handled, by outcome.", []string{"handler", "outcome"}, nil)
	successDesc = prometheus.NewDesc(
		"tend_handler_success_rate", "Share of successful invocations.", []string{"handler"}, nil)
	slowDesc = prometheus.NewDesc(
		"tend_handler_slow_events_total", "Invocations slower than the handler's threshold.", []string{"handler"}, nil)
	healthyDesc = prometheus.NewDesc(
		"tend_handler_healthy", "Whether the handler is healthy.", []string{"handler"}, nil)
	retryAttemptsDesc = prometheus.NewDesc(
		"tend_retry_attempts_total", "Attempts made by a retrying operation.", []string{"operation"}, nil)
	retryLimitedDesc = prometheus.NewDesc(
		"tend_retry_rate_limited_total", "Attempts rejected by rate limiting.", []string{"operation"}, nil)
	retrySucceededDesc = prometheus.NewDesc(
		"tend_retry_succeeded_total", "Operations that eventually succeeded.", []string{"operation"}, nil)
)

var _ prometheus.Collector = (*Collector)(nil)

// Collector turns a fresh MetricsReport into Prometheus samples on every scrape.
type Collector struct {
	source ports.StatusSource
}

// NewCollector creates a Collector reading from source.
func NewCollector(source ports.StatusSource) *Collector {
	return &Collector{source: source}
}

// NewRegistry returns a registry holding only a Collector for source.
func NewRegistry(source ports.StatusSource) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return reg
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		readyDesc, stateDesc, processingDesc, avgDesc, minDesc, maxDesc, eventsDesc,
		successDesc, slowDesc, healthyDesc, retryAttemptsDesc, retryLimitedDesc, retrySucceededDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	rep := c.source.Metrics()

	ch <- prometheus.MustNewConstMetric(readyDesc, prometheus.GaugeValue, boolValue(rep.Ready))
	for _, st := range domain.AllStates {
		ch <- prometheus.MustNewConstMetric(stateDesc, prometheus.GaugeValue, boolValue(st == rep.State), string(st))
	}

	for name, h := range rep.Handlers {
		p := h.Performance
		ch <- prometheus.MustNewConstSummary(processingDesc,
			uint64(len(h.Samples)), h.SampleSum, quantiles(h.Samples), name)
		ch <- prometheus.MustNewConstMetric(avgDesc, prometheus.GaugeValue, p.AvgProcessingTimeSeconds, name)
		ch <- prometheus.MustNewConstMetric(minDesc, prometheus.GaugeValue, p.MinProcessingTimeSeconds, name)
		ch <- prometheus.MustNewConstMetric(maxDesc, prometheus.GaugeValue, p.MaxProcessingTimeSeconds, name)
		ch <- prometheus.MustNewConstMetric(eventsDesc, prometheus.CounterValue, float64(p.EventsProcessed), name, "processed")
		ch <- prometheus.MustNewConstMetric(eventsDesc, prometheus.CounterValue, float64(p.EventsFailed), name, "failed")
		ch <- prometheus.MustNewConstMetric(successDesc, prometheus.GaugeValue, p.SuccessRate, name)
		ch <- prometheus.MustNewConstMetric(slowDesc, prometheus.CounterValue, float64(p.SlowProcessingEvents), name)
		ch <- prometheus.MustNewConstMetric(healthyDesc, prometheus.GaugeValue, boolValue(h.Healthy), name)
	}

	for _, r := range rep.Retries {
		ch <- prometheus.MustNewConstMetric(retryAttemptsDesc, prometheus.CounterValue, float64(r.TotalAttempts), r.Operation)
		ch <- prometheus.MustNewConstMetric(retryLimitedDesc, prometheus.CounterValue, float64(r.RateLimited), r.Operation)
		ch <- prometheus.MustNewConstMetric(retrySucceededDesc, prometheus.CounterValue, float64(r.Succeeded), r.Operation)
	}
}

// quantiles returns the 0.5 and 0.95 empirical quantiles of samples.
func quantiles(samples []float64) map[float64]float64 {
	if len(samples) == 0 {
		return map[float64]float64{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return map[float64]float64{
		0.5:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		0.95: stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
