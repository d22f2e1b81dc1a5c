package fs_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/adapters/fs"
	"go.trai.ch/tend/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFilter_DefaultPatterns(t *testing.T) {
	f := fs.NewFilter(domain.DefaultIgnorePatterns, domain.DefaultExtensions)

	tests := []struct {
		rel  string
		want bool
	}{
		{"Notes/today.md", true},
		{"Captures/IMG_0001.JPG", true},
		{"Captures/photo.heic", true},
		{"Notes/script.py", false},
		{".git/HEAD", false},
		{"Notes/.obsidian/workspace.md", false},
		{".tend/daemon.log", false},
		{"Notes/draft.md.swp", false},
		{"Notes/draft.md~", false},
		{"Notes/.#today.md", false},
		{"Notes/#today.md#", false},
		{"Notes/tmp.md.tmp", false},
		{".DS_Store", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Accept(tt.rel), tt.rel)
	}

	assert.True(t, f.Ignored(".git", true))
	assert.True(t, f.Ignored("sub/.jj", true))
	assert.False(t, f.Ignored("Notes", true))
	assert.False(t, f.Ignored("", true))
}

func TestFilter_ExtensionNormalization(t *testing.T) {
	f := fs.NewFilter(nil, []string{"MD", " .Txt ", ""})
	assert.True(t, f.Accept("a.md"))
	assert.True(t, f.Accept("b.TXT"))
	assert.False(t, f.Accept("c.png"))

	all := fs.NewFilter(nil, nil)
	assert.True(t, all.Accept("anything.bin"))
}

func TestWalker_PrunesIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Notes", "a.md"), "a")
	writeFile(t, filepath.Join(root, "Notes", "deep", "b.md"), "b")
	writeFile(t, filepath.Join(root, "Notes", "c.txt"), "c")
	writeFile(t, filepath.Join(root, ".obsidian", "d.md"), "d")
	writeFile(t, filepath.Join(root, "Other", "e.md"), "e")

	w := fs.NewWalker(fs.NewFilter(domain.DefaultIgnorePatterns, []string{".md"}))

	files := slices.Sorted(w.WalkFiles(root, filepath.Join(root, "Notes")))
	assert.Equal(t, []string{
		filepath.Join(root, "Notes", "a.md"),
		filepath.Join(root, "Notes", "deep", "b.md"),
	}, files)

	all := slices.Collect(w.WalkFiles(root, root))
	assert.Len(t, all, 3)

	dirs := slices.Collect(w.WalkDirs(root))
	assert.Contains(t, dirs, root)
	assert.Contains(t, dirs, filepath.Join(root, "Notes", "deep"))
	assert.NotContains(t, dirs, filepath.Join(root, ".obsidian"))
}

func TestLedger_SeenByContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "copy-of-a.jpg")
	writeFile(t, a, "pixels")
	writeFile(t, b, "pixels")

	l := fs.NewLedger()
	seen, err := l.Seen(a)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.Mark(a))
	seen, err = l.Seen(b)
	require.NoError(t, err)
	assert.True(t, seen)

	writeFile(t, a, "edited pixels")
	seen, err = l.Seen(a)
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = l.Seen(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x")
	writeFile(t, p, "same")
	q := filepath.Join(dir, "y")
	writeFile(t, q, "same")

	h1, err := fs.HashFile(p)
	require.NoError(t, err)
	h2, err := fs.HashFile(q)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotZero(t, h1)
}
