// Package store persists daemon snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var _ ports.SnapshotStore = (*SQLiteStore)(nil)

// DefaultRetention is the number of snapshots kept when no retention is configured.
const DefaultRetention = 1440

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	taken_at   TEXT    NOT NULL,
	healthy    INTEGER NOT NULL,
	state      TEXT    NOT NULL,
	payload    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id);
`

// SQLiteStore implements ports.SnapshotStore on a SQLite database file.
type SQLiteStore struct {
	db        *sql.DB
	retention int
}

// Open opens or creates the snapshot database at path.
// A retention of zero or less keeps DefaultRetention snapshots.
func Open(path string, retention int) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error()), "path", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error()), "path", path)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, zerr.With(zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error()), "pragma", p)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, zerr.With(zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error()), "path", path)
	}

	if retention <= 0 {
		retention = DefaultRetention
	}
	return &SQLiteStore{db: db, retention: retention}, nil
}

// Save appends a snapshot and prunes the oldest rows beyond the retention.
func (s *SQLiteStore) Save(ctx context.Context, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error())
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, taken_at, healthy, state, payload) VALUES (?, ?, ?, ?, ?)`,
		snap.SessionID, snap.TakenAt.UTC().Format(time.RFC3339Nano), snap.Health.IsHealthy,
		string(snap.Health.Daemon.State), string(payload),
	); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error()), "session_id", snap.SessionID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id <= (SELECT MAX(id) FROM snapshots) - ?`, s.retention,
	); err != nil {
		return zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error())
	}
	return nil
}

// Latest returns the most recent snapshot or domain.ErrNoSnapshot.
func (s *SQLiteStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error())
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error())
	}
	return &snap, nil
}

// Count returns the number of stored snapshots.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, zerr.Wrap(domain.ErrSnapshotStoreFailed, err.Error())
	}
	return n, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
