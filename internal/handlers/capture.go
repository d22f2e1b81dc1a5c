package handlers

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

var defaultCaptureExtensions = []string{".jpg", ".jpeg", ".png", ".heic"}

// Capture turns new images under the capture directory into capture notes.
type Capture struct {
	*Base

	root       string
	captureDir string
	outputDir  string
	exts       map[string]struct{}
	docs       ports.DocumentStore
	ledger     ports.Ledger
}

// NewCapture builds the capture-ingestion handler.
//
// Parameters: capture_dir (default "Captures"), output_dir (default "Captures/Notes"),
// extensions (default .jpg .jpeg .png .heic).
func NewCapture(name string, hc domain.HandlerConfig, deps Deps) (ports.Handler, error) {
	c := &Capture{
		Base:       NewBase(name, TypeCapture, hc, deps.Logger),
		root:       deps.Root,
		captureDir: cleanDir(hc.String("capture_dir", "Captures")),
		outputDir:  cleanDir(hc.String("output_dir", "Captures/Notes")),
		exts:       extSet(hc.Strings("extensions", defaultCaptureExtensions)),
		docs:       deps.Documents,
	}
	if deps.NewLedger != nil {
		c.ledger = deps.NewLedger()
	}
	if c.docs == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "capture requires a document store"), "handler", name)
	}
	return c, nil
}

// CanHandle accepts created or modified images under the capture directory.
func (c *Capture) CanHandle(ev domain.ChangeEvent) bool {
	if ev.Kind == domain.EventDeleted || !ev.Under(c.captureDir) {
		return false
	}
	if c.outputDir != "" && ev.Under(c.outputDir) {
		return false
	}
	_, ok := c.exts[ev.Ext()]
	return ok
}

// Process writes a capture note for the image unless its content was ingested before.
func (c *Capture) Process(ctx context.Context, ev domain.ChangeEvent) (domain.Result, error) {
	if c.ledger != nil {
		seen, err := c.ledger.Seen(ev.Path)
		if err != nil {
			return domain.Result{}, err
		}
		if seen {
			return domain.Skip("image content already ingested"), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}

	capturedAt, source, err := captureTime(ev.Path)
	if err != nil {
		return domain.Result{}, err
	}

	rel := ev.Rel()
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	notePath := filepath.Join(c.root, filepath.FromSlash(c.outputDir), capturedAt.Format("2006-01-02")+"-"+base+".md")

	doc := domain.NewDocument(notePath)
	doc.Set("type", "capture")
	doc.Set("source", rel)
	doc.Set("captured_at", capturedAt.Format(time.RFC3339))
	doc.Set("captured_at_source", source)
	doc.Set(domain.ApprovalField, false)
	doc.Body = "![[" + rel + "]]\n"

	if err := c.docs.Write(doc); err != nil {
		return domain.Result{}, err
	}

	if c.ledger != nil {
		if err := c.ledger.Mark(ev.Path); err != nil {
			return domain.Result{}, err
		}
	}

	return domain.Result{Action: "created", Outputs: []string{notePath}}, nil
}

// captureTime reads the EXIF original capture time and falls back to the file's
// modification time. The second value names the source that was used.
func captureTime(p string) (time.Time, string, error) {
	f, err := os.Open(p) //nolint:gosec // Path comes from the watcher
	if err != nil {
		return time.Time{}, "", zerr.With(zerr.Wrap(domain.ErrFileReadFailed, err.Error()), "path", p)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	if x, err := exif.Decode(f); err == nil {
		if t, err := x.DateTime(); err == nil && !t.IsZero() {
			return t, "exif", nil
		}
	}

	info, err := f.Stat()
	if err != nil {
		return time.Time{}, "", zerr.With(zerr.Wrap(domain.ErrFileReadFailed, err.Error()), "path", p)
	}
	return info.ModTime(), "mtime", nil
}
