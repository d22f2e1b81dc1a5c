// Package dispatcher fans debounced change events out to handlers.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

// Dispatcher runs every matching handler for an event in its own goroutine.
//
// A handler invocation never affects the caller or sibling invocations: errors,
// panics and deadline overruns are recorded on the handler and logged.
type Dispatcher struct {
	logger  ports.Logger
	tracer  ports.Tracer
	timeout time.Duration

	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// New creates a Dispatcher. A zero timeout disables the per-invocation deadline.
func New(logger ports.Logger, tracer ports.Tracer, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		logger:  logger,
		tracer:  tracer,
		timeout: timeout,
	}
}

// Dispatch starts one invocation per handler whose CanHandle accepts ev and
// returns how many were started. It does not wait for them.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.ChangeEvent, handlers []ports.Handler) int {
	started := 0
	for _, h := range handlers {
		if !d.accepts(h, ev) {
			continue
		}
		started++
		d.inFlight.Add(1)
		d.wg.Go(func() {
			defer d.inFlight.Add(-1)
			d.invoke(ctx, h, ev)
		})
	}
	return started
}

// Wait blocks until every started invocation returned or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of invocations that have not returned yet.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

func (d *Dispatcher) accepts(h ports.Handler, ev domain.ChangeEvent) bool {
	var ok bool
	if r := panics.Try(func() { ok = h.CanHandle(ev) }); r != nil {
		d.logger.Error(zerr.With(zerr.Wrap(r.AsError(), "handler predicate panicked"), "handler", h.Name()),
			"handler", h.Name(), "path", ev.Path)
		return false
	}
	return ok
}

type outcome struct {
	res domain.Result
	err error
}

func (d *Dispatcher) invoke(ctx context.Context, h ports.Handler, ev domain.ChangeEvent) {
	ctx, span := d.tracer.Start(ctx, "handler."+h.Name())
	defer span.End()
	span.SetAttribute("handler", h.Name())
	span.SetAttribute("path", ev.Rel())
	span.SetAttribute("kind", ev.Kind)

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		var catcher panics.Catcher
		catcher.Try(func() { o.res, o.err = h.Process(callCtx, ev) })
		if r := catcher.Recovered(); r != nil {
			o.err = errors.Join(domain.ErrHandlerPanic, r.AsError())
		}
		done <- o
	}()

	var o outcome
	select {
	case o = <-done:
	case <-callCtx.Done():
		o.err = d.abandoned(ctx, h)
	}
	elapsed := time.Since(start)

	h.Observe(elapsed, o.err)

	if o.err != nil {
		span.RecordError(o.err)
		d.logger.Error(zerr.With(o.err, "handler", h.Name()),
			"handler", h.Name(),
			"path", ev.Path,
			"duration", elapsed.String(),
		)
		return
	}

	span.SetAttribute("action", o.res.Action)
	if o.res.Skipped {
		d.logger.Info("event skipped",
			"handler", h.Name(),
			"path", ev.Rel(),
			"reason", o.res.Reason,
		)
		return
	}
	d.logger.Info("event processed",
		"handler", h.Name(),
		"path", ev.Rel(),
		"action", o.res.Action,
		"duration", elapsed.String(),
	)
}

// abandoned builds the error recorded when the dispatcher stops waiting for a
// handler. The handler goroutine keeps running until Process returns.
func (d *Dispatcher) abandoned(parent context.Context, h ports.Handler) error {
	if parent.Err() != nil {
		return zerr.With(zerr.Wrap(parent.Err(), "handler cancelled by shutdown"), "handler", h.Name())
	}
	return zerr.With(zerr.Wrap(domain.ErrHandlerTimeout, h.Name()), "timeout", d.timeout.String())
}
