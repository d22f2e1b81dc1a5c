package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/adapters/logger"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing to a buffer without ANSI escape codes.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New()
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Pretty(t *testing.T) {
	tests := []struct {
		name       string
		log        func(lg *logger.Logger)
		goldenName string
	}{
		{
			name:       "info with attributes",
			log:        func(lg *logger.Logger) { lg.Info("daemon state changed", "from", "starting", "to", "running") },
			goldenName: "info_attrs",
		},
		{
			name: "warn slow event",
			log: func(lg *logger.Logger) {
				lg.Warn("slow event processing", "handler", "crossref", "duration", "6s", "threshold", "5s")
			},
			goldenName: "warn_slow",
		},
		{
			name:       "plain error",
			log:        func(lg *logger.Logger) { lg.Error(os.ErrPermission, "path", "a.md") },
			goldenName: "error_plain",
		},
		{
			name: "zerr chain",
			log: func(lg *logger.Logger) {
				err := zerr.With(zerr.Wrap(domain.ErrRateLimited, "transcript service answered 429"), "url", "https://example.com")
				lg.Error(err, "handler", "video")
			},
			goldenName: "error_chain",
		},
		{
			name: "multiline error",
			log: func(lg *logger.Logger) {
				lg.Error(errors.New("yaml: unmarshal errors:\n  line 3: cannot unmarshal"))
			},
			goldenName: "error_multiline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_NilError(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Info("event processed", "handler", "capture", "path", "Captures/a.jpg")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "event processed", rec["msg"])
	assert.Equal(t, "capture", rec["handler"])

	buf.Reset()
	lg.Error(zerr.With(zerr.Wrap(domain.ErrHandlerTimeout, "deadline"), "handler", "video"), "path", "x.md")
	rec = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "x.md", rec["path"])
	assert.Contains(t, rec, "error")
}

func TestLogger_ConfigureFile(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	root := t.TempDir()

	lg := logger.New()
	require.NoError(t, lg.Configure(domain.LogConfig{File: ".tend/daemon.log", MaxSizeMB: 1}, root))

	lg.Warn("retries exhausted", "operation", "transcript")
	require.NoError(t, lg.Close())

	data, err := os.ReadFile(filepath.Join(root, ".tend", "daemon.log"))
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z WARN retries exhausted operation=transcript\n$`, string(data))
}

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer

	log := slog.New(logger.NewPrettyHandler(&buf, nil)).With("handler", "video").WithGroup("event")
	log.Info("dispatching", "path", "Inbox/My Note.md", slog.Group("op", "kind", "write"))
	log.Debug("hidden")

	assert.Equal(t, `dispatching handler=video event.path="Inbox/My Note.md" event.op.kind=write`+"\n", buf.String())
}

func TestLogger_ConfigureWithoutFile(t *testing.T) {
	lg, buf := newTestLogger(t)
	require.NoError(t, lg.Configure(domain.LogConfig{JSON: true}, t.TempDir()))

	lg.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
