package fs

import (
	"sync"

	"go.trai.ch/tend/internal/core/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger remembers content hashes of files a handler has already handled or written.
// It lives for the daemon process only.
type Ledger struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[uint64]struct{})}
}

// Seen reports whether the current content of path was marked before.
func (l *Ledger) Seen(path string) (bool, error) {
	sum, err := HashFile(path)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[sum]
	return ok, nil
}

// Mark records the current content of path.
func (l *Ledger) Mark(path string) error {
	sum, err := HashFile(path)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[sum] = struct{}{}
	return nil
}
