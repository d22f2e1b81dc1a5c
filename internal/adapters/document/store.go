package document

import (
	"os"
	"path/filepath"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DocumentStore = (*Store)(nil)

// Store reads and writes notes on the local filesystem.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// Read loads and parses the note at path.
func (s *Store) Read(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the watcher
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrFileReadFailed, err.Error()), "path", path)
	}
	return Parse(path, data)
}

// Write renders doc and replaces the file at doc.Path atomically.
func (s *Store) Write(doc *domain.Document) error {
	data, err := Render(doc)
	if err != nil {
		return err
	}
	return WriteAtomic(doc.Path, data)
}

// WriteAtomic writes data to a temporary sibling and renames it over path,
// so watchers and readers never observe a partial file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", path)
	}
	if err := tmp.Chmod(domain.FilePerm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(domain.ErrDocumentWriteFailed, err.Error()), "path", path)
	}
	return nil
}
