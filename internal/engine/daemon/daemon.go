// Package daemon owns the watcher, the handler registry and the lifecycle state
// machine of the automation daemon.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/engine/dispatcher"
	"go.trai.ch/tend/internal/engine/health"
	"go.trai.ch/tend/internal/engine/retry"
	"go.trai.ch/zerr"
)

// HandlerBuilder instantiates the enabled handlers of a configuration.
type HandlerBuilder func(cfg *domain.Config) ([]ports.Handler, error)

// Options are the collaborators of a Daemon.
type Options struct {
	Config     *domain.Config
	Handlers   HandlerBuilder
	Watchers   ports.WatcherFactory
	Debouncers ports.DebouncerFactory
	Logger     ports.Logger
	Tracer     ports.Tracer
	Limiter    *retry.RateLimiter
	PID        int
	Now        func() time.Time
}

// Daemon runs the watch, debounce, dispatch pipeline.
//
// Start, Stop and Reload are serialized. State, Health and Metrics may be
// called at any time from any goroutine.
type Daemon struct {
	build      HandlerBuilder
	watchers   ports.WatcherFactory
	debouncers ports.DebouncerFactory
	logger     ports.Logger
	tracer     ports.Tracer
	limiter    *retry.RateLimiter
	pid        int
	now        func() time.Time

	lifecycle sync.Mutex

	mu        sync.RWMutex
	cfg       *domain.Config
	state     domain.DaemonState
	handlers  []ports.Handler
	startedAt time.Time
	lastErr   error

	run *run
}

// run holds everything that lives between one Start and the matching Stop.
type run struct {
	ctx        context.Context
	cancel     context.CancelFunc
	watcher    ports.Watcher
	debouncer  ports.Debouncer
	dispatcher *dispatcher.Dispatcher
	handlers   []ports.Handler
	loopDone   chan struct{}

	gate      sync.RWMutex
	accepting bool
}

// New creates a Daemon in the initializing state.
func New(opts Options) *Daemon {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Daemon{
		build:      opts.Handlers,
		watchers:   opts.Watchers,
		debouncers: opts.Debouncers,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
		limiter:    opts.Limiter,
		pid:        opts.PID,
		now:        now,
		cfg:        opts.Config,
		state:      domain.StateInitializing,
	}
}

// State returns the current lifecycle state.
func (d *Daemon) State() domain.DaemonState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Err returns the error that moved the daemon to the error state, if any.
func (d *Daemon) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Config returns the configuration the daemon runs with.
func (d *Daemon) Config() *domain.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Handlers returns the registered handlers of the current or last run.
func (d *Daemon) Handlers() []ports.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers
}

// Info returns the daemon-level input of health aggregation.
func (d *Daemon) Info() health.DaemonInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return health.DaemonInfo{State: d.state, PID: d.pid, StartedAt: d.startedAt}
}

// Health rebuilds the health snapshot from current state.
func (d *Daemon) Health() domain.HealthSnapshot {
	return health.Aggregate(d.Info(), d.Handlers(), d.now())
}

// Metrics rebuilds the structured metrics report from current state.
func (d *Daemon) Metrics() domain.MetricsReport {
	return health.Report(d.Info(), d.Handlers(), d.now())
}

// Start wires the watcher, the handlers and the dispatcher and moves the daemon
// to running. Starting an active daemon is a no-op returning its state.
//
// Any failure moves the daemon to the error state and is returned wrapped in
// domain.ErrDaemonStartFailed.
func (d *Daemon) Start(ctx context.Context) (domain.DaemonState, error) {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if st := d.State(); st.Active() {
		return st, nil
	}
	if err := d.transition(domain.StateStarting); err != nil {
		return d.State(), err
	}

	r, err := d.wire(ctx)
	if err != nil {
		return d.fail(err)
	}

	d.mu.Lock()
	d.run = r
	d.handlers = r.handlers
	d.startedAt = d.now()
	d.lastErr = nil
	d.mu.Unlock()

	if err := d.transition(domain.StateRunning); err != nil {
		return d.fail(err)
	}
	return domain.StateRunning, nil
}

func (d *Daemon) wire(ctx context.Context) (*run, error) {
	cfg := d.Config()
	if cfg == nil {
		return nil, zerr.New("daemon has no configuration")
	}

	handlers, err := d.build(cfg)
	if err != nil {
		return nil, err
	}

	if d.limiter != nil && cfg.RateLimit.StateFile != "" {
		if err := d.limiter.Restore(cfg.RateLimit.StateFile); err != nil {
			d.logger.Warn("ignoring unreadable rate limit state", "path", cfg.RateLimit.StateFile, "error", err.Error())
		}
	}

	w, err := d.watchers(cfg)
	if err != nil {
		closeHandlers(handlers, d.logger)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		ctx:        runCtx,
		cancel:     cancel,
		watcher:    w,
		dispatcher: dispatcher.New(d.logger, d.tracer, cfg.HandlerTimeout),
		handlers:   handlers,
		loopDone:   make(chan struct{}),
		accepting:  true,
	}
	r.debouncer = d.debouncers(cfg.Root, cfg.Debounce, r.dispatch)

	if err := w.Start(runCtx, cfg.Root); err != nil {
		cancel()
		_ = w.Stop()
		closeHandlers(handlers, d.logger)
		return nil, err
	}

	go r.loop()

	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		names = append(names, h.Name())
	}
	d.logger.Info("watching vault", "root", cfg.Root, "handlers", names, "debounce", cfg.Debounce.String())
	return r, nil
}

// loop feeds raw watcher events into the debouncer until the watcher stops.
func (r *run) loop() {
	defer close(r.loopDone)
	for ev := range r.watcher.Events() {
		r.debouncer.Add(ev.Path, ev.Operation.Kind())
	}
}

// dispatch is the debouncer's emit callback.
func (r *run) dispatch(ev domain.ChangeEvent) {
	r.gate.RLock()
	defer r.gate.RUnlock()
	if !r.accepting {
		return
	}
	r.dispatcher.Dispatch(r.ctx, ev, r.handlers)
}

// close stops new dispatches. In-flight invocations keep running.
func (r *run) close() {
	r.gate.Lock()
	r.accepting = false
	r.gate.Unlock()
}

func (d *Daemon) fail(err error) (domain.DaemonState, error) {
	startErr := errors.Join(domain.ErrDaemonStartFailed, err)

	d.mu.Lock()
	d.lastErr = startErr
	d.mu.Unlock()

	_ = d.transition(domain.StateError)
	d.logger.Error(zerr.Wrap(err, domain.ErrDaemonStartFailed.Error()))
	return domain.StateError, startErr
}

// Stop stops the watcher, lets in-flight handler invocations finish within the
// shutdown grace period and moves the daemon to stopped. Stopping a daemon that
// is not running is a no-op returning its state, except that an errored daemon
// settles in stopped.
func (d *Daemon) Stop(ctx context.Context) (domain.DaemonState, error) {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	switch st := d.State(); st {
	case domain.StateRunning:
	case domain.StateError:
		if err := d.transition(domain.StateStopped); err != nil {
			return d.State(), err
		}
		return domain.StateStopped, nil
	default:
		return st, nil
	}

	if err := d.transition(domain.StateStopping); err != nil {
		return d.State(), err
	}

	d.mu.Lock()
	r := d.run
	d.run = nil
	grace := d.cfg.ShutdownGrace
	stateFile := d.cfg.RateLimit.StateFile
	d.mu.Unlock()

	d.drain(ctx, r, grace)

	if d.limiter != nil && stateFile != "" {
		if err := d.limiter.Persist(stateFile); err != nil {
			d.logger.Warn("failed to persist rate limit state", "path", stateFile, "error", err.Error())
		}
	}

	if err := d.transition(domain.StateStopped); err != nil {
		return d.State(), err
	}
	return domain.StateStopped, nil
}

func (d *Daemon) drain(ctx context.Context, r *run, grace time.Duration) {
	if r == nil {
		return
	}
	defer r.cancel()

	if err := r.watcher.Stop(); err != nil {
		d.logger.Warn("failed to stop watcher", "error", err.Error())
	}
	<-r.loopDone
	r.debouncer.Stop()
	r.close()

	waitCtx := ctx
	if grace > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, grace)
		defer cancel()
	}
	if err := r.dispatcher.Wait(waitCtx); err != nil {
		d.logger.Warn("shutdown grace period expired, abandoning handlers",
			"in_flight", r.dispatcher.InFlight(),
			"grace", grace.String(),
		)
	}

	closeHandlers(r.handlers, d.logger)
}

// Reload replaces the configuration. A running daemon is restarted with the new
// configuration and fresh handlers.
func (d *Daemon) Reload(ctx context.Context, cfg *domain.Config) (domain.DaemonState, error) {
	if cfg == nil {
		return d.State(), zerr.Wrap(domain.ErrConfigInvalid, "reload requires a configuration")
	}

	wasRunning := d.State() == domain.StateRunning
	if wasRunning {
		if _, err := d.Stop(ctx); err != nil {
			return d.State(), err
		}
	}

	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.logger.Info("configuration reloaded", "root", cfg.Root)

	if !wasRunning {
		return d.State(), nil
	}
	return d.Start(ctx)
}

func (d *Daemon) transition(to domain.DaemonState) error {
	d.mu.Lock()
	from := d.state
	if !domain.CanTransition(from, to) {
		d.mu.Unlock()
		err := zerr.Wrap(domain.ErrInvalidTransition, string(from)+" -> "+string(to))
		return zerr.With(err, "from", string(from))
	}
	d.state = to
	d.mu.Unlock()

	d.logger.Info("daemon state changed", "from", string(from), "to", string(to))
	return nil
}

func closeHandlers(handlers []ports.Handler, logger ports.Logger) {
	for _, h := range handlers {
		c, ok := h.(ports.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Warn("failed to close handler", "handler", h.Name(), "error", err.Error())
		}
	}
}
