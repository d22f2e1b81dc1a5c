package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	daemonsvc "go.trai.ch/tend/internal/adapters/daemon"
	"go.trai.ch/tend/internal/adapters/store"
	"go.trai.ch/tend/internal/adapters/telemetry"
	"go.trai.ch/tend/internal/adapters/watcher"
	"go.trai.ch/tend/internal/app"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func newApp(ctrl *gomock.Controller, connector *mocks.MockDaemonConnector) *app.App {
	return app.New(
		mocks.NewMockConfigLoader(ctrl),
		quietLogger(ctrl),
		connector,
		nil,
		nil,
		telemetry.NewNoOpTracer(),
	)
}

func TestApp_StatusRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	connector := mocks.NewMockDaemonConnector(ctrl)
	client := mocks.NewMockDaemonClient(ctrl)
	snap := &domain.HealthSnapshot{IsHealthy: true, StatusCode: domain.StatusCodeHealthy}

	connector.EXPECT().Running(root).Return(42, true)
	connector.EXPECT().Connect(gomock.Any(), root).Return(client, nil)
	client.EXPECT().Health(gomock.Any()).Return(snap, nil)
	client.EXPECT().Close().Return(nil)

	report, err := newApp(ctrl, connector).Status(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, report.Running)
	assert.Equal(t, 42, report.PID)
	assert.Same(t, snap, report.Health)
	assert.Nil(t, report.Last)
}

func TestApp_StatusDownWithoutSnapshots(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	connector := mocks.NewMockDaemonConnector(ctrl)
	connector.EXPECT().Running(root).Return(0, false)

	report, err := newApp(ctrl, connector).Status(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, report.Running)
	assert.Nil(t, report.Health)
	assert.Nil(t, report.Last)
	assert.NoFileExists(t, domain.SnapshotDBPath(root), "status must not create the database")
}

func TestApp_StatusDownShowsLastSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()
	takenAt := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	st, err := store.Open(domain.SnapshotDBPath(root), 0)
	require.NoError(t, err)
	for i, session := range []string{"first", "second"} {
		require.NoError(t, st.Save(context.Background(), domain.Snapshot{
			SessionID: session,
			TakenAt:   takenAt.Add(time.Duration(i) * time.Minute),
			Metrics:   domain.MetricsReport{State: domain.StateStopped},
		}))
	}
	require.NoError(t, st.Close())

	connector := mocks.NewMockDaemonConnector(ctrl)
	connector.EXPECT().Running(root).Return(0, false)

	report, err := newApp(ctrl, connector).Status(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, report.Running)
	require.NotNil(t, report.Last)
	assert.Equal(t, "second", report.Last.SessionID)
	assert.Equal(t, takenAt.Add(time.Minute), report.Last.TakenAt)
}

func TestApp_StatusAliveButUnresponsive(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	connector := mocks.NewMockDaemonConnector(ctrl)
	connector.EXPECT().Running(root).Return(42, true)
	connector.EXPECT().Connect(gomock.Any(), root).Return(nil, domain.ErrDaemonNotRunning)

	report, err := newApp(ctrl, connector).Status(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, report.Running)
	assert.Zero(t, report.PID)
}

func TestApp_Start(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	connector := mocks.NewMockDaemonConnector(ctrl)
	gomock.InOrder(
		connector.EXPECT().Spawn(gomock.Any(), root, "custom.yaml").Return(nil),
		connector.EXPECT().Running(root).Return(99, true),
	)

	pid, err := newApp(ctrl, connector).Start(context.Background(), app.StartOptions{
		Root:       root,
		ConfigPath: "custom.yaml",
	})
	require.NoError(t, err)
	assert.Equal(t, 99, pid)
}

func TestApp_StopWaitsForExit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		root := "/vault"

		connector := mocks.NewMockDaemonConnector(ctrl)
		gomock.InOrder(
			connector.EXPECT().Running(root).Return(42, true),
			connector.EXPECT().Terminate(root).Return(nil),
			connector.EXPECT().Running(root).Return(42, true).Times(3),
			connector.EXPECT().Running(root).Return(0, false),
		)

		start := time.Now()
		pid, err := newApp(ctrl, connector).Stop(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, 42, pid)
		assert.Equal(t, 300*time.Millisecond, time.Since(start))
	})
}

func TestApp_StopTimesOut(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		root := "/vault"

		connector := mocks.NewMockDaemonConnector(ctrl)
		connector.EXPECT().Terminate(root).Return(nil)
		connector.EXPECT().Running(root).Return(42, true).AnyTimes()

		_, err := newApp(ctrl, connector).Stop(context.Background(), root)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestApp_StopNotRunning(t *testing.T) {
	ctrl := gomock.NewController(t)

	connector := mocks.NewMockDaemonConnector(ctrl)
	connector.EXPECT().Running("/vault").Return(0, false)

	_, err := newApp(ctrl, connector).Stop(context.Background(), "/vault")
	require.ErrorIs(t, err, domain.ErrDaemonNotRunning)
}

func TestApp_HealthRequiresDaemon(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	connector := mocks.NewMockDaemonConnector(ctrl)
	connector.EXPECT().Connect(gomock.Any(), root).Return(nil, domain.ErrDaemonNotRunning)

	_, err := newApp(ctrl, connector).Health(context.Background(), root)
	require.ErrorIs(t, err, domain.ErrDaemonNotRunning)
}

func TestApp_ServeRefusesSecondDaemon(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(root, "").Return(&domain.Config{Root: root}, nil)
	connector := mocks.NewMockDaemonConnector(ctrl)
	connector.EXPECT().Running(root).Return(os.Getpid()+1, true)

	a := app.New(loader, quietLogger(ctrl), connector, nil, nil, telemetry.NewNoOpTracer())
	err := a.Serve(context.Background(), app.ServeOptions{Root: root})
	require.ErrorIs(t, err, domain.ErrDaemonAlreadyRunning)
}

func TestApp_Serve(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Captures"), domain.DirPerm))

	cfg := &domain.Config{
		Root:             root,
		Debounce:         50 * time.Millisecond,
		Ignore:           domain.DefaultIgnorePatterns,
		ShutdownGrace:    time.Second,
		HandlerTimeout:   time.Minute,
		SnapshotInterval: time.Hour,
		Handlers: map[string]domain.HandlerConfig{
			"capture": {Enabled: true},
		},
	}

	log := quietLogger(ctrl)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(root, "").Return(cfg, nil)
	connector := daemonsvc.NewConnectorWith("/nonexistent/tend", daemonsvc.Probe{})

	a := app.New(loader, log, connector, watcher.Factory(log), watcher.NewDebouncerPort, telemetry.NewNoOpTracer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, app.ServeOptions{Root: root}) }()

	require.Eventually(t, func() bool {
		report, err := a.Status(context.Background(), root)
		return err == nil && report.Running
	}, 5*time.Second, 20*time.Millisecond)

	pid, ok := connector.Running(root)
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, os.WriteFile(filepath.Join(root, "Captures", "shot.png"), []byte("not really a png"), domain.FilePerm))

	require.Eventually(t, func() bool {
		rep, err := a.Metrics(context.Background(), root)
		return err == nil && rep.Handlers["capture"].Performance.EventsProcessed == 1
	}, 5*time.Second, 20*time.Millisecond)

	text, err := a.MetricsText(context.Background(), root)
	require.NoError(t, err)
	assert.Contains(t, text, "tend_daemon_ready 1")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}

	assert.NoFileExists(t, domain.PIDPath(root))
	assert.NoFileExists(t, domain.SocketPath(root))

	report, err := a.Status(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, report.Running)
	require.NotNil(t, report.Last)
	assert.Equal(t, domain.StateStopped, report.Last.Metrics.State)
	assert.Equal(t, int64(1), report.Last.Metrics.Handlers["capture"].Performance.EventsProcessed)
}
