// Package watcher implements file system watching and per-path debouncing of change events.
package watcher

import (
	"sync"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
)

var _ ports.Debouncer = (*Debouncer)(nil)

// Debouncer coalesces rapid events on the same path into one ChangeEvent.
//
// Every event restarts the window of its path, so a path is delivered only once it has been
// quiet for the whole window. Distinct paths have independent windows.
type Debouncer struct {
	mu      sync.Mutex
	root    string
	window  time.Duration
	pending map[string]*pendingEvent
	stopped bool
	emit    func(domain.ChangeEvent)
}

type pendingEvent struct {
	kind       domain.EventKind
	observedAt time.Time
	timer      *time.Timer
	seq        uint64
}

// NewDebouncer creates a debouncer delivering events for paths under root to emit.
func NewDebouncer(root string, window time.Duration, emit func(domain.ChangeEvent)) *Debouncer {
	return &Debouncer{
		root:    root,
		window:  window,
		pending: make(map[string]*pendingEvent),
		emit:    emit,
	}
}

// NewDebouncerPort is NewDebouncer shaped as a ports.DebouncerFactory.
func NewDebouncerPort(root string, window time.Duration, emit func(domain.ChangeEvent)) ports.Debouncer {
	return NewDebouncer(root, window, emit)
}

// Add records a raw event for path and restarts its window.
func (d *Debouncer) Add(path string, kind domain.EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	p, ok := d.pending[path]
	if ok {
		p.kind = domain.Coalesce(p.kind, kind)
		p.timer.Stop()
	} else {
		p = &pendingEvent{kind: kind}
		d.pending[path] = p
	}
	p.observedAt = time.Now()
	p.seq++

	seq := p.seq
	p.timer = time.AfterFunc(d.window, func() { d.fire(path, seq) })
}

// fire delivers the event for path unless it was superseded by a later Add.
func (d *Debouncer) fire(path string, seq uint64) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if d.stopped || !ok || p.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.mu.Unlock()

	if d.emit != nil {
		d.emit(domain.ChangeEvent{
			Path:       path,
			Root:       d.root,
			Kind:       p.kind,
			ObservedAt: p.observedAt,
		})
	}
}

// Pending returns the number of paths waiting for their window to close.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending window. Events not yet delivered are dropped and
// later calls to Add are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}
