package ports

import (
	"context"

	"go.trai.ch/tend/internal/core/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// SnapshotStore persists periodic health and metrics snapshots.
type SnapshotStore interface {
	// Save appends a snapshot.
	Save(ctx context.Context, snap domain.Snapshot) error
	// Latest returns the most recent snapshot or domain.ErrNoSnapshot.
	Latest(ctx context.Context) (*domain.Snapshot, error)
	// Close releases the underlying database.
	Close() error
}

// DocumentStore reads and writes notes with front matter.
type DocumentStore interface {
	Read(path string) (*domain.Document, error)
	Write(doc *domain.Document) error
}

// Ledger remembers content that was already handled.
type Ledger interface {
	// Seen reports whether the current content of path was marked before.
	Seen(path string) (bool, error)
	// Mark records the current content of path.
	Mark(path string) error
}
