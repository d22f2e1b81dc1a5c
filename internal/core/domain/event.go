package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// EventKind is the kind of filesystem change carried by a ChangeEvent.
type EventKind uint8

const (
	// EventCreated indicates a file was created.
	EventCreated EventKind = iota
	// EventModified indicates a file was written.
	EventModified
	// EventDeleted indicates a file was removed or renamed away.
	EventDeleted
)

// String returns the lowercase name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeEvent is a single, already debounced change to one path.
type ChangeEvent struct {
	// Path is the absolute path of the changed file.
	Path string
	// Root is the watched root the path belongs to.
	Root string
	// Kind is the coalesced kind of change.
	Kind EventKind
	// ObservedAt is when the last raw event for the path was seen.
	ObservedAt time.Time
}

// Ext returns the lowercase extension of the event's path.
func (e ChangeEvent) Ext() string {
	return strings.ToLower(filepath.Ext(e.Path))
}

// Rel returns the path relative to Root using forward slashes.
// It falls back to the absolute path when the event has no root.
func (e ChangeEvent) Rel() string {
	if e.Root == "" {
		return filepath.ToSlash(e.Path)
	}
	rel, err := filepath.Rel(e.Root, e.Path)
	if err != nil {
		return filepath.ToSlash(e.Path)
	}
	return filepath.ToSlash(rel)
}

// Under reports whether the event's path lies inside dir, which is relative to Root.
// An empty dir matches everything under Root.
func (e ChangeEvent) Under(dir string) bool {
	rel := e.Rel()
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return false
	}
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	if dir == "" || dir == "." {
		return true
	}
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

// Coalesce folds a later raw kind into the kind accumulated so far within one debounce window.
//
// A file that was created and then written is still new; a file that ends deleted is deleted;
// a file deleted and recreated inside the window is treated as modified.
func Coalesce(prev, next EventKind) EventKind {
	switch {
	case next == EventDeleted:
		return EventDeleted
	case prev == EventCreated && next == EventModified:
		return EventCreated
	case prev == EventDeleted && next == EventCreated:
		return EventModified
	default:
		return next
	}
}
