package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

// PIDFile is the liveness marker of a daemon: a file holding its process id.
type PIDFile struct {
	path string
}

// NewPIDFile returns the marker stored at path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the location of the marker.
func (p *PIDFile) Path() string {
	return p.path
}

// Write records pid, creating the parent directory when needed.
func (p *PIDFile) Write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create daemon directory"), "path", p.path)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(pid)+"\n"), domain.PrivateFilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write pid file"), "path", p.path)
	}
	return nil
}

// Read returns the recorded process id.
// A missing file yields an error matching os.ErrNotExist.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to read pid file"), "path", p.path)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, zerr.With(zerr.Wrap(domain.ErrPIDFileInvalid, "unparsable pid file"), "path", p.path)
	}
	return pid, nil
}

// Remove deletes the marker. A missing marker is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to remove pid file"), "path", p.path)
	}
	return nil
}

var _ ports.ProcessProbe = Probe{}

// Probe checks process liveness with signal 0.
type Probe struct{}

// Alive reports whether pid refers to a running process.
func (Probe) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
