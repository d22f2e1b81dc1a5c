// Package app implements the application layer for tend.
package app

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"time"

	daemonsvc "go.trai.ch/tend/internal/adapters/daemon"
	"go.trai.ch/tend/internal/adapters/document"
	"go.trai.ch/tend/internal/adapters/exposition"
	"go.trai.ch/tend/internal/adapters/external"
	"go.trai.ch/tend/internal/adapters/fs"
	"go.trai.ch/tend/internal/adapters/store"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/engine/daemon"
	"go.trai.ch/tend/internal/engine/retry"
	"go.trai.ch/tend/internal/handlers"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	stopPollInterval = 100 * time.Millisecond
	stopTimeout      = 30 * time.Second
)

// StoreOpener opens the snapshot store at path.
type StoreOpener func(path string) (ports.SnapshotStore, error)

// logConfigurer is implemented by loggers that can redirect their output.
type logConfigurer interface {
	Configure(cfg domain.LogConfig, root string) error
	Close() error
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	connector    ports.DaemonConnector
	watchers     ports.WatcherFactory
	debouncers   ports.DebouncerFactory
	tracer       ports.Tracer
	openStore    StoreOpener
	now          func() time.Time
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	connector ports.DaemonConnector,
	watchers ports.WatcherFactory,
	debouncers ports.DebouncerFactory,
	tracer ports.Tracer,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		connector:    connector,
		watchers:     watchers,
		debouncers:   debouncers,
		tracer:       tracer,
		openStore: func(path string) (ports.SnapshotStore, error) {
			return store.Open(path, store.DefaultRetention)
		},
		now: time.Now,
	}
}

// WithStoreOpener replaces how the snapshot store is opened.
func (a *App) WithStoreOpener(open StoreOpener) *App {
	a.openStore = open
	return a
}

// WithClock replaces the wall clock.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	return a
}

// ServeOptions configuration for the Serve method.
type ServeOptions struct {
	Root       string
	ConfigPath string
}

// Serve runs the daemon in the foreground until ctx is done.
//
// It starts the watch pipeline, writes the liveness marker, serves the health
// sockets, the HTTP listener and periodic snapshots, and on return stops the
// daemon, records a final snapshot and removes the marker.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve vault root")
	}

	cfg, err := a.configLoader.Load(root, opts.ConfigPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	if lc, ok := a.logger.(logConfigurer); ok {
		if err := lc.Configure(cfg.Log, root); err != nil {
			return err
		}
		defer func() { _ = lc.Close() }()
	}

	self := os.Getpid()
	if pid, ok := a.connector.Running(root); ok && pid != self {
		return zerr.With(zerr.Wrap(domain.ErrDaemonAlreadyRunning, "refusing to serve"), "pid", pid)
	}

	limiter := retry.NewRateLimiter(cfg.RateLimit)
	d := daemon.New(daemon.Options{
		Config:     cfg,
		Handlers:   a.handlerBuilder(limiter),
		Watchers:   a.watchers,
		Debouncers: a.debouncers,
		Logger:     a.logger,
		Tracer:     a.tracer,
		Limiter:    limiter,
		PID:        self,
		Now:        a.now,
	})

	if _, err := d.Start(ctx); err != nil {
		return err
	}

	stopCtx := context.WithoutCancel(ctx)
	pidFile := daemonsvc.NewPIDFile(domain.PIDPath(root))
	if err := pidFile.Write(self); err != nil {
		_, _ = d.Stop(stopCtx)
		return err
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			a.logger.Error(err)
		}
	}()

	snaps := a.snapshotter(root, cfg, d)
	routes := exposition.NewHandler(d, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return daemonsvc.NewServer(root, d, routes).Serve(gctx)
	})
	if cfg.Listen != "" {
		g.Go(func() error {
			return exposition.ListenAndServe(gctx, cfg.Listen, routes)
		})
	}
	if snaps != nil {
		g.Go(func() error {
			snaps.Run(gctx)
			return nil
		})
	}

	a.logger.Info("daemon running", "pid", self, "root", root, "listen", cfg.Listen)
	serveErr := g.Wait()

	_, stopErr := d.Stop(stopCtx)
	if snaps != nil {
		if err := snaps.Take(stopCtx); err != nil {
			a.logger.Warn("failed to record final snapshot", "error", err.Error())
		}
		if err := snaps.Close(); err != nil {
			a.logger.Warn("failed to close snapshot store", "error", err.Error())
		}
	}
	a.logger.Info("daemon exited", "pid", self)
	return errors.Join(serveErr, stopErr)
}

func (a *App) handlerBuilder(limiter *retry.RateLimiter) daemon.HandlerBuilder {
	return func(cfg *domain.Config) ([]ports.Handler, error) {
		walker := fs.NewWalker(fs.NewFilter(cfg.Ignore, cfg.Extensions))
		return handlers.Build(cfg, handlers.Deps{
			Root:      cfg.Root,
			Logger:    a.logger,
			Documents: document.NewStore(),
			NewLedger: func() ports.Ledger { return fs.NewLedger() },
			Files: func(dir string) iter.Seq[string] {
				return walker.WalkFiles(cfg.Root, dir)
			},
			Limiter:    limiter,
			Retry:      cfg.Retry,
			NewFetcher: external.FromConfig,
			Now:        a.now,
		})
	}
}

// snapshotter opens the snapshot store when snapshots are enabled.
// A store that cannot be opened disables snapshots for this run.
func (a *App) snapshotter(root string, cfg *domain.Config, source ports.StatusSource) *Snapshotter {
	if cfg.SnapshotInterval <= 0 {
		return nil
	}
	st, err := a.openStore(domain.SnapshotDBPath(root))
	if err != nil {
		a.logger.Warn("snapshots disabled", "error", err.Error())
		return nil
	}
	return NewSnapshotter(st, source, cfg.SnapshotInterval, a.logger, a.now)
}

// StartOptions configuration for the Start method.
type StartOptions struct {
	Root       string
	ConfigPath string
}

// Start spawns a detached daemon for the vault and returns its process id.
func (a *App) Start(ctx context.Context, opts StartOptions) (int, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return 0, zerr.Wrap(err, "failed to resolve vault root")
	}
	if err := a.connector.Spawn(ctx, root, opts.ConfigPath); err != nil {
		return 0, err
	}
	pid, _ := a.connector.Running(root)
	return pid, nil
}

// Stop signals the daemon serving root and waits until it has exited.
// It returns the process id that was stopped.
func (a *App) Stop(ctx context.Context, root string) (int, error) {
	pid, ok := a.connector.Running(root)
	if !ok {
		return 0, zerr.With(zerr.Wrap(domain.ErrDaemonNotRunning, "nothing to stop"), "root", root)
	}
	if err := a.connector.Terminate(root); err != nil {
		return pid, err
	}

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()
	for {
		if _, alive := a.connector.Running(root); !alive {
			return pid, nil
		}
		select {
		case <-ctx.Done():
			return pid, zerr.With(zerr.Wrap(ctx.Err(), "daemon did not exit"), "pid", pid)
		case <-ticker.C:
		}
	}
}

// StatusReport describes a vault's daemon as seen from the CLI.
type StatusReport struct {
	Root    string
	Running bool
	PID     int
	// Health is the live snapshot of a running daemon.
	Health *domain.HealthSnapshot
	// Last is the most recent persisted snapshot, reported when the daemon is down.
	Last *domain.Snapshot
}

// Status reports on the daemon serving root. When it is not running the last
// persisted snapshot, if any, is returned instead of live health.
func (a *App) Status(ctx context.Context, root string) (*StatusReport, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve vault root")
	}
	report := &StatusReport{Root: root}

	if pid, ok := a.connector.Running(root); ok {
		snap, err := a.Health(ctx, root)
		if err == nil {
			report.Running = true
			report.PID = pid
			report.Health = snap
			return report, nil
		}
		a.logger.Warn("daemon process is alive but not answering", "pid", pid, "error", err.Error())
	}

	last, err := a.lastSnapshot(ctx, root)
	if err != nil {
		return nil, err
	}
	report.Last = last
	return report, nil
}

func (a *App) lastSnapshot(ctx context.Context, root string) (*domain.Snapshot, error) {
	path := domain.SnapshotDBPath(root)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	st, err := a.openStore(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	snap, err := st.Latest(ctx)
	if errors.Is(err, domain.ErrNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Health fetches the live health snapshot of the daemon serving root.
func (a *App) Health(ctx context.Context, root string) (*domain.HealthSnapshot, error) {
	var snap *domain.HealthSnapshot
	err := a.withClient(ctx, root, func(c ports.DaemonClient) error {
		var err error
		snap, err = c.Health(ctx)
		return err
	})
	return snap, err
}

// Metrics fetches the structured metrics report of the daemon serving root.
func (a *App) Metrics(ctx context.Context, root string) (*domain.MetricsReport, error) {
	var rep *domain.MetricsReport
	err := a.withClient(ctx, root, func(c ports.DaemonClient) error {
		var err error
		rep, err = c.Metrics(ctx)
		return err
	})
	return rep, err
}

// MetricsText fetches the line-form metrics of the daemon serving root.
func (a *App) MetricsText(ctx context.Context, root string) (string, error) {
	var text string
	err := a.withClient(ctx, root, func(c ports.DaemonClient) error {
		var err error
		text, err = c.MetricsText(ctx)
		return err
	})
	return text, err
}

func (a *App) withClient(ctx context.Context, root string, fn func(ports.DaemonClient) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve vault root")
	}
	client, err := a.connector.Connect(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	return fn(client)
}
