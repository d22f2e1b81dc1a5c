// Package handlers contains the feature handlers dispatched by the daemon.
//
// The set of handler variants is closed: capture, crossref and video. Each variant embeds
// Base for naming and metrics and implements CanHandle and Process itself.
package handlers

import (
	"iter"
	"path"
	"strings"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/engine/metrics"
	"go.trai.ch/tend/internal/engine/retry"
)

// Deps are the collaborators shared by handler constructors.
type Deps struct {
	// Root is the vault root.
	Root string
	// Logger receives handler log lines.
	Logger ports.Logger
	// Documents reads and writes notes.
	Documents ports.DocumentStore
	// NewLedger creates a fresh content ledger for one handler.
	NewLedger func() ports.Ledger
	// Files yields accepted files under a directory of the vault.
	Files func(dir string) iter.Seq[string]
	// Limiter spaces calls to external services. It is shared by every handler.
	Limiter *retry.RateLimiter
	// Retry is the backoff policy for external calls.
	Retry domain.RetryConfig
	// NewFetcher builds a transcript client from a handler's configuration.
	NewFetcher func(hc domain.HandlerConfig) ports.TranscriptFetcher
	// Now returns the current time.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Base implements the naming and metrics half of ports.Handler.
type Base struct {
	name    string
	typ     string
	tracker *metrics.Tracker
}

// NewBase creates a Base whose tracker is configured from hc.
func NewBase(name, typ string, hc domain.HandlerConfig, logger ports.Logger) *Base {
	return &Base{
		name:    name,
		typ:     typ,
		tracker: metrics.NewTracker(name, metrics.OptionsFromConfig(hc), logger),
	}
}

// Name returns the configured handler name.
func (b *Base) Name() string { return b.name }

// Type returns the handler variant.
func (b *Base) Type() string { return b.typ }

// Observe records one invocation.
func (b *Base) Observe(elapsed time.Duration, err error) { b.tracker.Record(elapsed, err) }

// Metrics returns a snapshot of the handler's processing metrics.
func (b *Base) Metrics() domain.ProcessingMetrics { return b.tracker.Snapshot() }

// Health evaluates the handler's health.
func (b *Base) Health() domain.HandlerHealth { return b.tracker.Health() }

// HealthOptions returns the rules Health evaluates metrics against.
func (b *Base) HealthOptions() metrics.Options { return b.tracker.Options() }

// extSet normalizes a list of extensions into a lookup set.
func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// cleanDir normalizes a vault-relative directory parameter.
func cleanDir(dir string) string {
	dir = strings.Trim(path.Clean("/"+strings.ReplaceAll(dir, "\\", "/")), "/")
	return dir
}

// noteLink renders a wiki link to a vault file.
func noteLink(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return "[[" + strings.TrimSuffix(base, path.Ext(base)) + "]]"
}
