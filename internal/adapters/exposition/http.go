package exposition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

// Paths served by NewHandler.
const (
	HealthPath      = "/healthz"
	MetricsPath     = "/metrics"
	MetricsJSONPath = "/metrics.json"
)

const shutdownTimeout = 5 * time.Second

// WriteText encodes every metric family gathered from g in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return zerr.Wrap(err, "failed to gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to encode metric family"), "metric", mf.GetName())
		}
	}
	return nil
}

// NewHandler serves the health snapshot, the line form and the structured form of source.
func NewHandler(source ports.StatusSource, logger ports.Logger) http.Handler {
	reg := NewRegistry(source)
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		snap := source.Health()
		writeJSON(w, snap.StatusCode, snap, logger)
	})

	mux.HandleFunc("GET "+MetricsJSONPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, source.Metrics(), logger)
	})

	mux.HandleFunc("GET "+MetricsPath, func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		if err := WriteText(&buf, reg); err != nil {
			logger.Error(err, "path", MetricsPath)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		_, _ = w.Write(buf.Bytes())
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any, logger ports.Logger) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error(zerr.Wrap(err, "failed to encode response"))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// Serve serves h on lis until ctx is done, then shuts the server down gracefully.
func Serve(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "http server failed"), "addr", lis.Addr().String())
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return zerr.Wrap(err, "http server shutdown failed")
		}
		return nil
	}
}

// ListenAndServe listens on the TCP address addr and serves h until ctx is done.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen"), "addr", addr)
	}
	return Serve(ctx, lis, h)
}
