package fs

import (
	"path"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Filter decides which vault paths reach the handlers.
// Paths are relative to the vault root and use forward slashes.
type Filter struct {
	ignore *gitignore.GitIgnore
	exts   map[string]struct{}
}

// NewFilter compiles gitignore-style patterns. An empty extension list accepts every file.
func NewFilter(patterns, extensions []string) *Filter {
	f := &Filter{ignore: gitignore.CompileIgnoreLines(patterns...)}
	if len(extensions) > 0 {
		f.exts = make(map[string]struct{}, len(extensions))
		for _, ext := range extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			f.exts[ext] = struct{}{}
		}
	}
	return f
}

// Ignored reports whether rel matches an ignore pattern.
// Directory patterns such as ".git/" only match when isDir is set or rel lies below the directory.
func (f *Filter) Ignored(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(rel, "./")
	if rel == "" || rel == "." {
		return false
	}
	if isDir {
		rel += "/"
	}
	return f.ignore.MatchesPath(rel)
}

// Accept reports whether a file at rel should be delivered: not ignored and
// carrying a watched extension.
func (f *Filter) Accept(rel string) bool {
	if f.Ignored(rel, false) {
		return false
	}
	if f.exts == nil {
		return true
	}
	_, ok := f.exts[strings.ToLower(path.Ext(rel))]
	return ok
}
