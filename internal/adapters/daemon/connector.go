package daemon

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	pollInterval    = 100 * time.Millisecond
	maxPollDuration = 5 * time.Second
)

var _ ports.DaemonConnector = (*Connector)(nil)

// Connector implements ports.DaemonConnector.
type Connector struct {
	executablePath string
	probe          ports.ProcessProbe
}

// NewConnector creates a connector that spawns the running executable.
func NewConnector() (*Connector, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to determine executable path")
	}
	return NewConnectorWith(exe, Probe{}), nil
}

// NewConnectorWith creates a connector spawning executable and checking liveness with probe.
func NewConnectorWith(executable string, probe ports.ProcessProbe) *Connector {
	return &Connector{executablePath: executable, probe: probe}
}

// Running reads the pid file under root and reports whether that process is alive.
func (c *Connector) Running(root string) (int, bool) {
	pid, err := NewPIDFile(domain.PIDPath(root)).Read()
	if err != nil {
		return 0, false
	}
	return pid, c.probe.Alive(pid)
}

// Connect returns a client for the daemon serving root once its health service answers.
func (c *Connector) Connect(ctx context.Context, root string) (ports.DaemonClient, error) {
	if _, ok := c.Running(root); !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrDaemonNotRunning, "no live daemon"), "root", root)
	}

	client, err := Dial(root)
	if err != nil {
		return nil, err
	}
	if _, err := client.Check(ctx, ""); err != nil {
		_ = client.Close()
		return nil, errors.Join(domain.ErrDaemonNotRunning, err)
	}
	return client, nil
}

// Spawn starts the daemon process in the background.
func (c *Connector) Spawn(ctx context.Context, root, configPath string) error {
	if root == "" {
		return zerr.New("root cannot be empty")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve absolute root path")
	}
	if pid, ok := c.Running(absRoot); ok {
		return zerr.With(zerr.Wrap(domain.ErrDaemonAlreadyRunning, "refusing to spawn"), "pid", pid)
	}

	if mkdirErr := os.MkdirAll(domain.TendPath(absRoot), domain.DirPerm); mkdirErr != nil {
		return zerr.Wrap(mkdirErr, "failed to create daemon directory")
	}

	logPath := domain.LogPath(absRoot)
	//nolint:gosec // G304: logPath is from root + domain constant, not user input
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, domain.PrivateFilePerm)
	if err != nil {
		return zerr.Wrap(err, "failed to open daemon log")
	}

	args := []string{"daemon", "run", "--root", absRoot}
	if configPath != "" {
		absConfig, absErr := filepath.Abs(configPath)
		if absErr != nil {
			_ = logFile.Close()
			return zerr.Wrap(absErr, "failed to resolve config path")
		}
		args = append(args, "--config", absConfig)
	}

	//nolint:gosec // G204: executablePath is controlled, args are built from resolved paths
	cmd := exec.Command(c.executablePath, args...)
	cmd.Dir = absRoot
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return zerr.Wrap(err, domain.ErrDaemonSpawnFailed.Error())
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		_ = logFile.Close()
		close(exited)
	}()

	return c.waitForDaemonStartup(ctx, absRoot, exited)
}

// waitForDaemonStartup waits for the daemon to become responsive.
func (c *Connector) waitForDaemonStartup(ctx context.Context, root string, exited <-chan struct{}) error {
	start := time.Now()
	for time.Since(start) < maxPollDuration {
		if c.responsive(ctx, root) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			return zerr.With(zerr.Wrap(domain.ErrDaemonSpawnFailed, "daemon exited during startup"),
				"log", domain.LogPath(root))
		case <-time.After(pollInterval):
		}
	}
	return zerr.With(zerr.Wrap(domain.ErrDaemonSpawnFailed, "daemon failed to start within timeout"),
		"log", domain.LogPath(root))
}

func (c *Connector) responsive(ctx context.Context, root string) bool {
	client, err := c.Connect(ctx, root)
	if err != nil {
		return false
	}
	_ = client.Close()
	return true
}

// Terminate sends SIGTERM to the daemon serving root.
func (c *Connector) Terminate(root string) error {
	pid, ok := c.Running(root)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrDaemonNotRunning, "nothing to terminate"), "root", root)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to signal daemon"), "pid", pid)
	}
	return nil
}
