package domain

import "go.trai.ch/zerr"

var (
	// ErrRateLimited is returned by external services that throttle requests.
	// It is the only error class the retry engine treats as transient.
	ErrRateLimited = zerr.New("rate limited by external service")

	// ErrResourceNotFound is returned when an external resource does not exist.
	// It is never retried.
	ErrResourceNotFound = zerr.New("external resource not found")

	// ErrExternalServiceFailed is returned when an external service answers with an unexpected status.
	ErrExternalServiceFailed = zerr.New("external service request failed")

	// ErrHandlerPanic is recorded when a handler panics during processing.
	ErrHandlerPanic = zerr.New("handler panicked")

	// ErrHandlerTimeout is recorded when a handler exceeds its processing deadline.
	ErrHandlerTimeout = zerr.New("handler exceeded processing deadline")

	// ErrUnknownHandler is returned when the configuration enables a handler that is not registered.
	ErrUnknownHandler = zerr.New("unknown handler")

	// ErrNoHandlersEnabled is returned when the daemon is started without any enabled handler.
	ErrNoHandlersEnabled = zerr.New("no handlers enabled")

	// ErrDaemonStartFailed is returned when the daemon cannot reach the running state.
	ErrDaemonStartFailed = zerr.New("daemon failed to start")

	// ErrInvalidTransition is returned when the daemon state machine rejects a transition.
	ErrInvalidTransition = zerr.New("invalid daemon state transition")

	// ErrDaemonNotRunning is returned when a command requires a running daemon.
	ErrDaemonNotRunning = zerr.New("daemon is not running")

	// ErrDaemonSpawnFailed is returned when the background daemon process cannot be started.
	ErrDaemonSpawnFailed = zerr.New("failed to spawn daemon process")

	// ErrDaemonAlreadyRunning is returned when a second daemon is started for the same root.
	ErrDaemonAlreadyRunning = zerr.New("daemon is already running")

	// ErrDaemonUnhealthy is returned by health queries when the daemon reports itself unhealthy.
	ErrDaemonUnhealthy = zerr.New("daemon is unhealthy")

	// ErrWatcherStartFailed is returned when the filesystem watcher cannot be started.
	ErrWatcherStartFailed = zerr.New("failed to start filesystem watcher")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigInvalid is returned when a config value fails validation.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrDocumentParseFailed is returned when a note's front matter cannot be parsed.
	ErrDocumentParseFailed = zerr.New("failed to parse document front matter")

	// ErrDocumentWriteFailed is returned when a note cannot be written.
	ErrDocumentWriteFailed = zerr.New("failed to write document")

	// ErrFileReadFailed is returned when a watched file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read file")

	// ErrPIDFileInvalid is returned when the PID file does not contain a process id.
	ErrPIDFileInvalid = zerr.New("pid file does not contain a valid process id")

	// ErrSnapshotStoreFailed is returned when a snapshot cannot be persisted or loaded.
	ErrSnapshotStoreFailed = zerr.New("snapshot store operation failed")

	// ErrNoSnapshot is returned when no snapshot has been persisted yet.
	ErrNoSnapshot = zerr.New("no snapshot recorded")
)
