package handlers_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/core/ports/mocks"
	"go.trai.ch/tend/internal/handlers"
	"go.uber.org/mock/gomock"
)

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{"capture", "crossref", "video"}, handlers.Types())
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	deps := newDeps(t, root)
	deps.NewFetcher = func(domain.HandlerConfig) ports.TranscriptFetcher {
		return mocks.NewMockTranscriptFetcher(gomock.NewController(t))
	}

	cfg := &domain.Config{Root: root, Handlers: map[string]domain.HandlerConfig{
		"video":       {Enabled: true},
		"capture":     {Enabled: true},
		"crossref":    {Enabled: false},
		"talks-notes": {Enabled: true, Params: map[string]any{"type": "crossref", "notes_dir": "Talks"}},
	}}

	hs, err := handlers.Build(cfg, deps)
	require.NoError(t, err)
	require.Len(t, hs, 3)

	assert.Equal(t, "capture", hs[0].Name())
	assert.Equal(t, "capture", hs[0].Type())
	assert.Equal(t, "talks-notes", hs[1].Name())
	assert.Equal(t, "crossref", hs[1].Type())
	assert.Equal(t, "video", hs[2].Name())

	_, reports := hs[2].(ports.RetryReporter)
	assert.True(t, reports, "video reports retry stats")
}

func TestBuild_UnknownHandler(t *testing.T) {
	cfg := &domain.Config{Handlers: map[string]domain.HandlerConfig{
		"summarize": {Enabled: true},
	}}
	_, err := handlers.Build(cfg, newDeps(t, t.TempDir()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownHandler))
	assert.Contains(t, err.Error(), "summarize")
}

func TestBuild_NoneEnabled(t *testing.T) {
	cfg := &domain.Config{Handlers: map[string]domain.HandlerConfig{
		"capture": {Enabled: false},
	}}
	_, err := handlers.Build(cfg, newDeps(t, t.TempDir()))
	assert.True(t, errors.Is(err, domain.ErrNoHandlersEnabled))
}

func TestBuild_InvalidParams(t *testing.T) {
	cfg := &domain.Config{Handlers: map[string]domain.HandlerConfig{
		"crossref": {Enabled: true, Params: map[string]any{"max_results": 0}},
	}}
	_, err := handlers.Build(cfg, newDeps(t, t.TempDir()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfigInvalid))
}

func TestBase_TracksMetrics(t *testing.T) {
	b := handlers.NewBase("capture", "capture", domain.HandlerConfig{Params: map[string]any{"max_consecutive_failures": 2}}, nil)
	assert.Equal(t, "capture", b.Name())

	b.Observe(10*time.Millisecond, nil)
	b.Observe(20*time.Millisecond, errors.New("boom"))
	b.Observe(30*time.Millisecond, errors.New("boom"))

	m := b.Metrics()
	assert.Equal(t, int64(1), m.EventsProcessed)
	assert.Equal(t, int64(2), m.EventsFailed)

	h := b.Health()
	assert.False(t, h.IsHealthy)
	assert.Equal(t, domain.HandlerUnhealthy, h.Status)
}
