package health_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/core/ports/mocks"
	"go.trai.ch/tend/internal/engine/health"
	"go.trai.ch/tend/internal/engine/metrics"
	"go.uber.org/mock/gomock"
)

func handlerWith(ctrl *gomock.Controller, name string, hh domain.HandlerHealth) *mocks.MockHandler {
	h := mocks.NewMockHandler(ctrl)
	h.EXPECT().Name().Return(name).AnyTimes()
	h.EXPECT().Health().Return(hh).AnyTimes()
	return h
}

func TestAggregate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	healthy := domain.HandlerHealth{IsHealthy: true, Status: domain.HandlerHealthy, EventsProcessed: 3}
	degraded := domain.HandlerHealth{IsHealthy: true, PerformanceDegraded: true, Status: domain.HandlerDegraded}
	failing := domain.HandlerHealth{Status: domain.HandlerUnhealthy, EventsFailed: 4}

	tests := []struct {
		name         string
		state        domain.DaemonState
		handlers     map[string]domain.HandlerHealth
		wantHealthy  bool
		wantCode     int
		wantDegraded bool
	}{
		{
			name:        "running with healthy handlers",
			state:       domain.StateRunning,
			handlers:    map[string]domain.HandlerHealth{"capture": healthy, "crossref": healthy},
			wantHealthy: true,
			wantCode:    http.StatusOK,
		},
		{
			name:     "one failing handler",
			state:    domain.StateRunning,
			handlers: map[string]domain.HandlerHealth{"capture": healthy, "video": failing},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:         "degraded but healthy",
			state:        domain.StateRunning,
			handlers:     map[string]domain.HandlerHealth{"crossref": degraded},
			wantHealthy:  true,
			wantCode:     http.StatusOK,
			wantDegraded: true,
		},
		{
			name:     "daemon stopping",
			state:    domain.StateStopping,
			handlers: map[string]domain.HandlerHealth{"capture": healthy},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:        "running without handlers",
			state:       domain.StateRunning,
			wantHealthy: true,
			wantCode:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			var hs []ports.Handler
			for name, hh := range tt.handlers {
				hs = append(hs, handlerWith(ctrl, name, hh))
			}

			info := health.DaemonInfo{State: tt.state, PID: 42, StartedAt: now.Add(-time.Minute)}
			snap := health.Aggregate(info, hs, now)

			assert.Equal(t, tt.wantHealthy, snap.IsHealthy)
			assert.Equal(t, tt.wantCode, snap.StatusCode)
			assert.Equal(t, tt.wantDegraded, snap.PerformanceDegraded)
			assert.Equal(t, tt.state, snap.Daemon.State)
			assert.Equal(t, 42, snap.Daemon.PID)
			assert.Equal(t, now, snap.GeneratedAt)
			assert.Len(t, snap.Handlers, len(tt.handlers))
			for name, hh := range tt.handlers {
				assert.Equal(t, hh, snap.Handlers[name])
			}
		})
	}
}

func TestAggregate_Uptime(t *testing.T) {
	now := time.Now()
	snap := health.Aggregate(health.DaemonInfo{State: domain.StateRunning, StartedAt: now.Add(-90 * time.Second)}, nil, now)
	assert.InDelta(t, 90, snap.Daemon.Uptime, 1e-6)
	assert.True(t, snap.Daemon.IsHealthy)
	assert.Equal(t, http.StatusOK, snap.Daemon.StatusCode)

	stopped := health.Aggregate(health.DaemonInfo{State: domain.StateStopped, StartedAt: now.Add(-time.Hour)}, nil, now)
	assert.Zero(t, stopped.Daemon.Uptime)
	assert.Equal(t, http.StatusServiceUnavailable, stopped.Daemon.StatusCode)
}

type retryingHandler struct {
	*mocks.MockHandler
	*mocks.MockRetryReporter
}

func TestReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	now := time.Now()

	capture := mocks.NewMockHandler(ctrl)
	capture.EXPECT().Name().Return("capture").AnyTimes()
	capture.EXPECT().Type().Return("capture").AnyTimes()
	capture.EXPECT().Metrics().Return(domain.ProcessingMetrics{
		EventsProcessed:      3,
		EventsFailed:         1,
		SlowProcessingEvents: 1,
		ProcessingTimes:      []time.Duration{time.Second, 2 * time.Second, 500 * time.Millisecond},
		PerformanceThreshold: 1500 * time.Millisecond,
		Avg:                  time.Second + 166*time.Millisecond,
		Min:                  500 * time.Millisecond,
		Max:                  2 * time.Second,
		P95:                  2 * time.Second,
		Sum:                  3500 * time.Millisecond,
	})
	capture.EXPECT().Health().Return(domain.HandlerHealth{IsHealthy: true})

	videoHandler := mocks.NewMockHandler(ctrl)
	videoHandler.EXPECT().Name().Return("video").AnyTimes()
	videoHandler.EXPECT().Type().Return("video").AnyTimes()
	videoHandler.EXPECT().Metrics().Return(domain.ProcessingMetrics{})
	videoHandler.EXPECT().Health().Return(domain.HandlerHealth{IsHealthy: true})
	retries := mocks.NewMockRetryReporter(ctrl)
	retries.EXPECT().RetryStats().Return([]domain.RetryStats{
		{Operation: "video.transcripts", TotalAttempts: 4, RateLimited: 1, Succeeded: 3},
	})
	video := retryingHandler{MockHandler: videoHandler, MockRetryReporter: retries}

	rep := health.Report(health.DaemonInfo{State: domain.StateRunning}, []ports.Handler{capture, video}, now)

	assert.True(t, rep.Ready)
	assert.Equal(t, domain.StateRunning, rep.State)
	require.Contains(t, rep.Handlers, "capture")

	c := rep.Handlers["capture"]
	assert.Equal(t, "capture", c.HandlerType)
	assert.Equal(t, int64(3), c.Performance.EventsProcessed)
	assert.Equal(t, int64(1), c.Performance.EventsFailed)
	assert.InDelta(t, 2.0, c.Performance.MaxProcessingTimeSeconds, 1e-9)
	assert.InDelta(t, 0.5, c.Performance.MinProcessingTimeSeconds, 1e-9)
	assert.InDelta(t, 1.5, c.Performance.ThresholdSeconds, 1e-9)
	assert.InDelta(t, 0.75, c.Performance.SuccessRate, 1e-9)
	assert.Equal(t, []float64{1, 2, 0.5}, c.Samples)
	assert.InDelta(t, 3.5, c.SampleSum, 1e-9)
	assert.True(t, c.Healthy)

	require.Len(t, rep.Retries, 1)
	assert.Equal(t, "video.transcripts", rep.Retries[0].Operation)
	assert.InDelta(t, 1.0, rep.Handlers["video"].Performance.SuccessRate, 1e-9)
}

func TestReport_NotReadyWhenStopped(t *testing.T) {
	rep := health.Report(health.DaemonInfo{State: domain.StateStopped}, nil, time.Now())
	assert.False(t, rep.Ready)
	assert.Empty(t, rep.Handlers)
}

type trackedHandler struct {
	*mocks.MockHandler
	opts metrics.Options
}

func (h trackedHandler) HealthOptions() metrics.Options { return h.opts }

func TestReport_HealthMatchesReportedCounters(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Health() has no expectation: the verdict must come from the one Metrics() snapshot.
	mock := mocks.NewMockHandler(ctrl)
	mock.EXPECT().Name().Return("video").AnyTimes()
	mock.EXPECT().Type().Return("video").AnyTimes()
	mock.EXPECT().Metrics().Return(domain.ProcessingMetrics{
		EventsProcessed:     1,
		EventsFailed:        3,
		ConsecutiveFailures: 3,
	}).Times(1)

	h := trackedHandler{MockHandler: mock, opts: metrics.DefaultOptions()}
	rep := health.Report(health.DaemonInfo{State: domain.StateRunning}, []ports.Handler{h}, time.Now())

	v := rep.Handlers["video"]
	assert.Equal(t, int64(3), v.Performance.EventsFailed)
	assert.False(t, v.Healthy)
}
