package ports

import (
	"context"
	"time"

	"go.trai.ch/tend/internal/core/domain"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_handler.go -package=mocks

// Handler is a pluggable unit of automation that opts into change events.
type Handler interface {
	// Name is the configured name of the handler, unique within a daemon.
	Name() string
	// Type identifies the handler variant in reports.
	Type() string
	// CanHandle reports whether the handler wants the event.
	// It must not perform I/O beyond inspecting the event itself.
	CanHandle(ev domain.ChangeEvent) bool
	// Process acts on the event. The context carries the invocation deadline.
	Process(ctx context.Context, ev domain.ChangeEvent) (domain.Result, error)
	// Observe records the outcome of one invocation in the handler's metrics.
	Observe(elapsed time.Duration, err error)
	// Metrics returns a snapshot of the handler's processing metrics.
	Metrics() domain.ProcessingMetrics
	// Health evaluates the handler's health from its metrics.
	Health() domain.HandlerHealth
}

// RetryReporter is implemented by handlers that call external services through
// retrying operations.
type RetryReporter interface {
	RetryStats() []domain.RetryStats
}

// Closer is implemented by handlers holding resources that must be released on stop.
type Closer interface {
	Close() error
}
