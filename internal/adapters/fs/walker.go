// Package fs provides file system adapters for filtering, walking and hashing vault files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Walker walks a vault tree honoring a Filter.
type Walker struct {
	filter *Filter
}

// NewWalker creates a Walker. A nil filter accepts everything.
func NewWalker(filter *Filter) *Walker {
	return &Walker{filter: filter}
}

// WalkFiles yields the absolute paths of accepted files under dir.
// Paths are matched against the filter relative to root; ignored directories are pruned.
func (w *Walker) WalkFiles(root, dir string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped rather than aborting the walk.
				return nil //nolint:nilerr // skip problematic entries
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil //nolint:nilerr // outside root
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path != dir && w.filter != nil && w.filter.Ignored(rel, true) {
					return filepath.SkipDir
				}
				return nil
			}

			if w.filter != nil && !w.filter.Accept(rel) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// WalkDirs yields every directory under root that is not ignored, root included.
func (w *Walker) WalkDirs(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // skip problematic directories
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && w.filter != nil {
				if rel, relErr := filepath.Rel(root, path); relErr == nil && w.filter.Ignored(filepath.ToSlash(rel), true) {
					return filepath.SkipDir
				}
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
