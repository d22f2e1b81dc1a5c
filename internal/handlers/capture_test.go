package handlers_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/adapters/document"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/handlers"
)

// tiffWithDateTime builds a minimal little-endian TIFF whose first IFD holds a
// single DateTime tag.
func tiffWithDateTime(t *testing.T, stamp string) []byte {
	t.Helper()
	val := append([]byte(stamp), 0)

	var b bytes.Buffer
	b.WriteString("II")
	le := binary.LittleEndian
	require.NoError(t, binary.Write(&b, le, uint16(42)))
	require.NoError(t, binary.Write(&b, le, uint32(8)))
	// IFD0: one entry.
	require.NoError(t, binary.Write(&b, le, uint16(1)))
	require.NoError(t, binary.Write(&b, le, uint16(0x0132)))
	require.NoError(t, binary.Write(&b, le, uint16(2)))
	require.NoError(t, binary.Write(&b, le, uint32(len(val))))
	require.NoError(t, binary.Write(&b, le, uint32(8+2+12+4)))
	require.NoError(t, binary.Write(&b, le, uint32(0)))
	b.Write(val)
	return b.Bytes()
}

func newCapture(t *testing.T, root string) *handlers.Capture {
	t.Helper()
	h, err := handlers.NewCapture("capture", domain.HandlerConfig{Enabled: true}, newDeps(t, root))
	require.NoError(t, err)
	return h.(*handlers.Capture)
}

func TestCapture_CanHandle(t *testing.T) {
	root := t.TempDir()
	h := newCapture(t, root)

	tests := []struct {
		rel  string
		kind domain.EventKind
		want bool
	}{
		{"Captures/a.jpg", domain.EventCreated, true},
		{"Captures/sub/a.PNG", domain.EventModified, true},
		{"Captures/a.jpg", domain.EventDeleted, false},
		{"Captures/a.txt", domain.EventCreated, false},
		{"Captures/Notes/a.jpg", domain.EventCreated, false},
		{"Elsewhere/a.jpg", domain.EventCreated, false},
		{"CapturesExtra/a.jpg", domain.EventCreated, false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, h.CanHandle(event(root, tt.rel, tt.kind)))
		})
	}
}

func TestCapture_ProcessUsesExifTime(t *testing.T) {
	root := t.TempDir()
	h := newCapture(t, root)

	img := filepath.Join(root, "Captures", "shot.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(img), 0o750))
	require.NoError(t, os.WriteFile(img, tiffWithDateTime(t, "2024:07:15 09:30:00"), 0o600))

	res, err := h.Process(context.Background(), event(root, "Captures/shot.jpg", domain.EventCreated))
	require.NoError(t, err)
	assert.Equal(t, "created", res.Action)

	note := filepath.Join(root, "Captures", "Notes", "2024-07-15-shot.md")
	require.Equal(t, []string{note}, res.Outputs)

	doc, err := document.NewStore().Read(note)
	require.NoError(t, err)
	assert.Equal(t, "capture", doc.String("type"))
	assert.Equal(t, "Captures/shot.jpg", doc.String("source"))
	assert.Equal(t, "exif", doc.String("captured_at_source"))
	want := time.Date(2024, 7, 15, 9, 30, 0, 0, time.Local).Format(time.RFC3339)
	assert.Equal(t, want, doc.String("captured_at"))
	assert.False(t, doc.Bool(domain.ApprovalField))
	assert.Equal(t, "![[Captures/shot.jpg]]\n", doc.Body)
}

func TestCapture_ProcessFallsBackToModTime(t *testing.T) {
	root := t.TempDir()
	h := newCapture(t, root)

	img := filepath.Join(root, "Captures", "plain.png")
	writeFile(t, img, "\x89PNG not really")
	mtime := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, os.Chtimes(img, mtime, mtime))

	res, err := h.Process(context.Background(), event(root, "Captures/plain.png", domain.EventCreated))
	require.NoError(t, err)

	note := filepath.Join(root, "Captures", "Notes", "2025-01-02-plain.md")
	require.Equal(t, []string{note}, res.Outputs)

	doc, err := document.NewStore().Read(note)
	require.NoError(t, err)
	assert.Equal(t, "mtime", doc.String("captured_at_source"))
	assert.Equal(t, mtime.Format(time.RFC3339), doc.String("captured_at"))
}

func TestCapture_SkipsDuplicateContent(t *testing.T) {
	root := t.TempDir()
	h := newCapture(t, root)

	writeFile(t, filepath.Join(root, "Captures", "one.jpg"), "same bytes")
	writeFile(t, filepath.Join(root, "Captures", "two.jpg"), "same bytes")

	res, err := h.Process(context.Background(), event(root, "Captures/one.jpg", domain.EventCreated))
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	res, err = h.Process(context.Background(), event(root, "Captures/two.jpg", domain.EventCreated))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "image content already ingested", res.Reason)

	entries, err := os.ReadDir(filepath.Join(root, "Captures", "Notes"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCapture_MissingFile(t *testing.T) {
	root := t.TempDir()
	h := newCapture(t, root)

	_, err := h.Process(context.Background(), event(root, "Captures/gone.jpg", domain.EventCreated))
	require.Error(t, err)
}
