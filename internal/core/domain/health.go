package domain

import (
	"net/http"
	"time"
)

// HandlerStatus is the coarse health classification of a handler.
type HandlerStatus string

const (
	// HandlerHealthy indicates the handler is processing normally.
	HandlerHealthy HandlerStatus = "healthy"
	// HandlerDegraded indicates the handler succeeds but is slower than its threshold.
	HandlerDegraded HandlerStatus = "degraded"
	// HandlerUnhealthy indicates the handler is failing.
	HandlerUnhealthy HandlerStatus = "unhealthy"
)

// Overall status codes assigned by the health aggregator.
const (
	StatusCodeHealthy   = http.StatusOK
	StatusCodeUnhealthy = http.StatusServiceUnavailable
)

// HandlerHealth is the health report of a single handler.
type HandlerHealth struct {
	IsHealthy           bool          `json:"is_healthy"`
	PerformanceDegraded bool          `json:"performance_degraded"`
	Status              HandlerStatus `json:"status"`
	EventsProcessed     int64         `json:"events_processed"`
	EventsFailed        int64         `json:"events_failed"`
	// AvgProcessingTime is expressed in seconds.
	AvgProcessingTime float64 `json:"avg_processing_time"`
	// Reason explains a non-healthy status.
	Reason string `json:"reason,omitempty"`
}

// DaemonHealth is the daemon-level part of a HealthSnapshot.
type DaemonHealth struct {
	IsHealthy  bool        `json:"is_healthy"`
	StatusCode int         `json:"status_code"`
	State      DaemonState `json:"state"`
	PID        int         `json:"pid,omitempty"`
	Uptime     float64     `json:"uptime_seconds"`
}

// HealthSnapshot combines daemon state and every handler's health.
// It is rebuilt on each request and never mutated afterwards.
type HealthSnapshot struct {
	IsHealthy           bool                     `json:"is_healthy"`
	StatusCode          int                      `json:"status_code"`
	PerformanceDegraded bool                     `json:"performance_degraded"`
	Daemon              DaemonHealth             `json:"daemon"`
	Handlers            map[string]HandlerHealth `json:"handlers"`
	GeneratedAt         time.Time                `json:"generated_at"`
}

// PerformanceReport is the performance block of one handler in a MetricsReport.
type PerformanceReport struct {
	EventsProcessed          int64   `json:"events_processed"`
	EventsFailed             int64   `json:"events_failed"`
	SlowProcessingEvents     int64   `json:"slow_processing_events"`
	AvgProcessingTimeSeconds float64 `json:"avg_processing_time_seconds"`
	MinProcessingTimeSeconds float64 `json:"min_processing_time_seconds"`
	MaxProcessingTimeSeconds float64 `json:"max_processing_time_seconds"`
	P95ProcessingTimeSeconds float64 `json:"p95_processing_time_seconds"`
	ThresholdSeconds         float64 `json:"performance_threshold_seconds"`
	SuccessRate              float64 `json:"success_rate"`
}

// HandlerReport is the structured metrics export of one handler.
type HandlerReport struct {
	HandlerType string            `json:"handler_type"`
	Performance PerformanceReport `json:"performance"`
	// Samples are retained processing durations in seconds, oldest first.
	Samples []float64 `json:"samples,omitempty"`
	// SampleSum is the sum of Samples in seconds.
	SampleSum float64 `json:"-"`
	Healthy   bool    `json:"-"`
}

// MetricsReport is the structured metrics export of the daemon.
type MetricsReport struct {
	Ready       bool                     `json:"ready"`
	State       DaemonState              `json:"state"`
	Handlers    map[string]HandlerReport `json:"handlers"`
	Retries     []RetryStats             `json:"retries,omitempty"`
	GeneratedAt time.Time                `json:"generated_at"`
}
