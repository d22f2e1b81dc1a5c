package domain

import "path/filepath"

const (
	// TendDirName is the name of the daemon's working directory inside the watched root.
	TendDirName = ".tend"

	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "tend.yaml"

	// PIDFileName is the name of the process liveness marker.
	PIDFileName = "daemon.pid"

	// SocketFileName is the name of the daemon's health socket.
	SocketFileName = "daemon.sock"

	// HTTPSocketFileName is the name of the socket serving health and metrics over HTTP.
	HTTPSocketFileName = "http.sock"

	// LogFileName is the name of the daemon log file.
	LogFileName = "daemon.log"

	// SnapshotDBName is the name of the snapshot database.
	SnapshotDBName = "snapshots.db"

	// RateLimitStateName is the name of the persisted rate limiter state.
	RateLimitStateName = "ratelimit.json"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600

	// SocketPerm is the permission applied to the health socket.
	SocketPerm = 0o600
)

// TendPath returns the daemon's working directory under root.
func TendPath(root string) string {
	return filepath.Join(root, TendDirName)
}

// PIDPath returns the path of the liveness marker under root.
func PIDPath(root string) string {
	return filepath.Join(root, TendDirName, PIDFileName)
}

// SocketPath returns the path of the health socket under root.
func SocketPath(root string) string {
	return filepath.Join(root, TendDirName, SocketFileName)
}

// HTTPSocketPath returns the path of the HTTP exposition socket under root.
func HTTPSocketPath(root string) string {
	return filepath.Join(root, TendDirName, HTTPSocketFileName)
}

// LogPath returns the path of the daemon log under root.
func LogPath(root string) string {
	return filepath.Join(root, TendDirName, LogFileName)
}

// SnapshotDBPath returns the path of the snapshot database under root.
func SnapshotDBPath(root string) string {
	return filepath.Join(root, TendDirName, SnapshotDBName)
}

// RateLimitStatePath returns the default rate limiter state file under root.
func RateLimitStatePath(root string) string {
	return filepath.Join(root, TendDirName, RateLimitStateName)
}
