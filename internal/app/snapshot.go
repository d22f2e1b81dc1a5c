package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
)

// Snapshotter periodically persists the daemon's health and metrics so that
// status remains available after the daemon exits.
type Snapshotter struct {
	store    ports.SnapshotStore
	source   ports.StatusSource
	session  string
	interval time.Duration
	logger   ports.Logger
	now      func() time.Time
}

// NewSnapshotter creates a Snapshotter with a fresh session id.
func NewSnapshotter(
	st ports.SnapshotStore,
	source ports.StatusSource,
	interval time.Duration,
	logger ports.Logger,
	now func() time.Time,
) *Snapshotter {
	if now == nil {
		now = time.Now
	}
	return &Snapshotter{
		store:    st,
		source:   source,
		session:  uuid.NewString(),
		interval: interval,
		logger:   logger,
		now:      now,
	}
}

// Session identifies the daemon run the snapshots belong to.
func (s *Snapshotter) Session() string {
	return s.session
}

// Take records one snapshot.
func (s *Snapshotter) Take(ctx context.Context) error {
	return s.store.Save(ctx, domain.Snapshot{
		SessionID: s.session,
		TakenAt:   s.now().UTC(),
		Health:    s.source.Health(),
		Metrics:   s.source.Metrics(),
	})
}

// Run records a snapshot every interval until ctx is done.
func (s *Snapshotter) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Take(ctx); err != nil {
				s.logger.Warn("failed to record snapshot", "session", s.session, "error", err.Error())
			}
		}
	}
}

// Close releases the store.
func (s *Snapshotter) Close() error {
	return s.store.Close()
}
