package domain

import "time"

// ProcessingMetrics is a point-in-time copy of one handler's processing statistics.
type ProcessingMetrics struct {
	// EventsProcessed counts successful invocations, skips included.
	EventsProcessed int64 `json:"events_processed"`
	// EventsFailed counts invocations that returned an error, panicked or timed out.
	EventsFailed int64 `json:"events_failed"`
	// ConsecutiveFailures counts failures since the last success.
	ConsecutiveFailures int64 `json:"consecutive_failures"`
	// SlowProcessingEvents counts invocations slower than the threshold.
	SlowProcessingEvents int64 `json:"slow_processing_events"`
	// SlowInWindow counts threshold violations among the retained durations.
	SlowInWindow int `json:"slow_in_window"`
	// ProcessingTimes holds the retained durations, oldest first.
	ProcessingTimes []time.Duration `json:"processing_times"`
	// WindowSize is the capacity of the rolling window.
	WindowSize int `json:"window_size"`
	// PerformanceThreshold marks an invocation as slow when exceeded.
	PerformanceThreshold time.Duration `json:"performance_threshold"`
	// Avg, Min, Max and P95 summarize ProcessingTimes. They are zero when no sample exists.
	Avg time.Duration `json:"avg"`
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	P95 time.Duration `json:"p95"`
	// Sum is the total of all retained durations.
	Sum time.Duration `json:"sum"`
	// LastEventAt is when the last invocation was recorded.
	LastEventAt time.Time `json:"last_event_at,omitzero"`
}

// Total returns the number of recorded invocations.
func (m ProcessingMetrics) Total() int64 {
	return m.EventsProcessed + m.EventsFailed
}

// SuccessRate returns the share of successful invocations, 1 when nothing was recorded.
func (m ProcessingMetrics) SuccessRate() float64 {
	total := m.Total()
	if total == 0 {
		return 1
	}
	return float64(m.EventsProcessed) / float64(total)
}

// RetryStats are the counters of one retrying operation.
type RetryStats struct {
	Operation     string `json:"operation"`
	TotalAttempts int64  `json:"total_attempts"`
	RateLimited   int64  `json:"rate_limited"`
	Succeeded     int64  `json:"succeeded"`
	Exhausted     int64  `json:"exhausted"`
	Permanent     int64  `json:"permanent"`
}

// Result describes what a handler did with one event.
type Result struct {
	// Action is a short verb such as "created", "updated" or "skipped".
	Action string
	// Outputs lists the files written.
	Outputs []string
	// Skipped is true when the handler deliberately did nothing.
	Skipped bool
	// Reason explains a skip.
	Reason string
}

// Skip builds a skipped Result with a reason.
func Skip(reason string) Result {
	return Result{Action: "skipped", Skipped: true, Reason: reason}
}
