package ports

import (
	"context"

	"go.trai.ch/tend/internal/core/domain"
)

//go:generate mockgen -source=daemon.go -destination=mocks/mock_daemon.go -package=mocks

// StatusSource exposes the daemon's health and metrics, rebuilt on every call.
type StatusSource interface {
	Health() domain.HealthSnapshot
	Metrics() domain.MetricsReport
}

// ProcessProbe answers whether a process id refers to a live process.
type ProcessProbe interface {
	Alive(pid int) bool
}

// DaemonClient talks to a running daemon.
type DaemonClient interface {
	// Check asks the daemon's health service about service ("" for the daemon itself).
	Check(ctx context.Context, service string) (bool, error)
	// Health fetches the full health snapshot.
	Health(ctx context.Context) (*domain.HealthSnapshot, error)
	// Metrics fetches the structured metrics report.
	Metrics(ctx context.Context) (*domain.MetricsReport, error)
	// MetricsText fetches the line-form metrics.
	MetricsText(ctx context.Context) (string, error)
	// Close releases client resources.
	Close() error
}

// DaemonConnector manages the daemon process from the CLI side.
type DaemonConnector interface {
	// Connect returns a client for a running daemon or domain.ErrDaemonNotRunning.
	Connect(ctx context.Context, root string) (DaemonClient, error)
	// Running returns the pid of the daemon serving root, if alive.
	Running(root string) (int, bool)
	// Spawn starts a detached daemon for root and waits until it answers.
	Spawn(ctx context.Context, root, configPath string) error
	// Terminate signals the daemon serving root to stop.
	Terminate(root string) error
}
