package ports

import (
	"context"
	"iter"
	"time"

	"go.trai.ch/tend/internal/core/domain"
)

//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks

// WatchOp represents the type of file system operation.
type WatchOp uint8

const (
	// OpCreate indicates a file or directory was created.
	OpCreate WatchOp = iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed away.
	OpRename
)

// Kind maps a raw operation to the change kind delivered to handlers.
// A rename reports the old name as deleted; the new name arrives as a create.
func (op WatchOp) Kind() domain.EventKind {
	switch op {
	case OpCreate:
		return domain.EventCreated
	case OpRemove, OpRename:
		return domain.EventDeleted
	default:
		return domain.EventModified
	}
}

// WatchEvent is a raw, undebounced file system event.
type WatchEvent struct {
	// Path is the absolute path of the file or directory that changed.
	Path string
	// Operation is the type of change that occurred.
	Operation WatchOp
}

// Watcher observes a directory tree.
type Watcher interface {
	// Start begins watching the given root directory recursively.
	Start(ctx context.Context, root string) error
	// Stop stops the watcher and closes the event stream.
	Stop() error
	// Events returns an iterator of raw file system events.
	// The iterator ends when the watcher stops.
	Events() iter.Seq[WatchEvent]
}

// WatcherFactory builds a fresh Watcher for each daemon start.
// The watcher honors the ignore patterns and extensions of cfg.
type WatcherFactory func(cfg *domain.Config) (Watcher, error)

// Debouncer coalesces raw events per path and emits one ChangeEvent once the
// path has been quiet for the debounce window.
type Debouncer interface {
	// Add records a raw event and restarts the path's window.
	Add(path string, kind domain.EventKind)
	// Stop drops pending events. Later Adds are ignored.
	Stop()
}

// DebouncerFactory builds a Debouncer for root that hands finished events to emit.
type DebouncerFactory func(root string, window time.Duration, emit func(domain.ChangeEvent)) Debouncer
