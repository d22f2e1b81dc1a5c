package handlers_test

import (
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/adapters/document"
	"go.trai.ch/tend/internal/adapters/fs"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/core/ports/mocks"
	"go.trai.ch/tend/internal/handlers"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func newDeps(t *testing.T, root string) handlers.Deps {
	t.Helper()
	walker := fs.NewWalker(fs.NewFilter(domain.DefaultIgnorePatterns, nil))
	return handlers.Deps{
		Root:      root,
		Logger:    quietLogger(t),
		Documents: document.NewStore(),
		NewLedger: func() ports.Ledger { return fs.NewLedger() },
		Files: func(dir string) iter.Seq[string] {
			return walker.WalkFiles(root, dir)
		},
		Now: func() time.Time { return fixedNow },
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func event(root, rel string, kind domain.EventKind) domain.ChangeEvent {
	return domain.ChangeEvent{
		Path:       filepath.Join(root, filepath.FromSlash(rel)),
		Root:       root,
		Kind:       kind,
		ObservedAt: fixedNow,
	}
}
