package exposition_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/adapters/exposition"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

var generatedAt = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func report() domain.MetricsReport {
	return domain.MetricsReport{
		Ready: true,
		State: domain.StateRunning,
		Handlers: map[string]domain.HandlerReport{
			"video": {
				HandlerType: "video",
				Performance: domain.PerformanceReport{
					EventsProcessed:          3,
					EventsFailed:             1,
					SlowProcessingEvents:     2,
					AvgProcessingTimeSeconds: 0.25,
					MinProcessingTimeSeconds: 0.1,
					MaxProcessingTimeSeconds: 0.4,
					P95ProcessingTimeSeconds: 0.4,
					ThresholdSeconds:         5,
					SuccessRate:              0.75,
				},
				Samples:   []float64{0.4, 0.1, 0.3, 0.2},
				SampleSum: 1,
				Healthy:   true,
			},
		},
		Retries: []domain.RetryStats{
			{Operation: "video.transcript", TotalAttempts: 5, RateLimited: 2, Succeeded: 3},
		},
		GeneratedAt: generatedAt,
	}
}

func health(healthy bool) domain.HealthSnapshot {
	code := domain.StatusCodeHealthy
	if !healthy {
		code = domain.StatusCodeUnhealthy
	}
	return domain.HealthSnapshot{
		IsHealthy:  healthy,
		StatusCode: code,
		Daemon: domain.DaemonHealth{
			IsHealthy:  true,
			StatusCode: domain.StatusCodeHealthy,
			State:      domain.StateRunning,
		},
		Handlers: map[string]domain.HandlerHealth{
			"video": {IsHealthy: healthy, EventsProcessed: 3, EventsFailed: 1, AvgProcessingTime: 0.25},
		},
		GeneratedAt: generatedAt,
	}
}

func newSource(t *testing.T, healthy bool) *mocks.MockStatusSource {
	t.Helper()
	src := mocks.NewMockStatusSource(gomock.NewController(t))
	src.EXPECT().Metrics().Return(report()).AnyTimes()
	src.EXPECT().Health().Return(health(healthy)).AnyTimes()
	return src
}

func TestCollector(t *testing.T) {
	c := exposition.NewCollector(newSource(t, true))

	expected := `
# HELP tend_daemon_ready Whether the daemon is running and dispatching events.
# TYPE tend_daemon_ready gauge
tend_daemon_ready 1
# HELP tend_daemon_state Current daemon lifecycle state.
# TYPE tend_daemon_state gauge
tend_daemon_state{state="error"} 0
tend_daemon_state{state="initializing"} 0
tend_daemon_state{state="running"} 1
tend_daemon_state{state="starting"} 0
tend_daemon_state{state="stopped"} 0
tend_daemon_state{state="stopping"} 0
# HELP tend_handler_events_total Events handled, by outcome.
# TYPE tend_handler_events_total counter
tend_handler_events_total{handler="video",outcome="failed"} 1
tend_handler_events_total{handler="video",outcome="processed"} 3
# HELP tend_handler_processing_seconds Handler processing time over the rolling window.
# TYPE tend_handler_processing_seconds summary
tend_handler_processing_seconds{handler="video",quantile="0.5"} 0.2
tend_handler_processing_seconds{handler="video",quantile="0.95"} 0.4
tend_handler_processing_seconds_sum{handler="video"} 1
tend_handler_processing_seconds_count{handler="video"} 4
# HELP tend_handler_success_rate Share of successful invocations.
# TYPE tend_handler_success_rate gauge
tend_handler_success_rate{handler="video"} 0.75
# HELP tend_retry_rate_limited_total Attempts rejected by rate limiting.
# TYPE tend_retry_rate_limited_total counter
tend_retry_rate_limited_total{operation="video.transcript"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"tend_daemon_ready",
		"tend_daemon_state",
		"tend_handler_events_total",
		"tend_handler_processing_seconds",
		"tend_handler_success_rate",
		"tend_retry_rate_limited_total",
	))

	assert.Equal(t, 13, testutil.CollectAndCount(c,
		"tend_daemon_ready",
		"tend_daemon_state",
		"tend_handler_processing_seconds",
		"tend_handler_processing_seconds_avg",
		"tend_handler_processing_seconds_min",
		"tend_handler_processing_seconds_max",
		"tend_handler_slow_events_total",
		"tend_handler_healthy",
	))
}

func TestHandler_Health(t *testing.T) {
	for _, healthy := range []bool{true, false} {
		srv := httptest.NewServer(exposition.NewHandler(newSource(t, healthy), quietLogger(t)))

		resp, err := http.Get(srv.URL + exposition.HealthPath)
		require.NoError(t, err)

		var snap domain.HealthSnapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		_ = resp.Body.Close()
		srv.Close()

		if healthy {
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		} else {
			assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		}
		assert.Equal(t, healthy, snap.Handlers["video"].IsHealthy)
		assert.Equal(t, int64(1), snap.Handlers["video"].EventsFailed)
	}
}

func TestHandler_Metrics(t *testing.T) {
	srv := httptest.NewServer(exposition.NewHandler(newSource(t, true), quietLogger(t)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + exposition.MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test cleanup
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)

	require.Contains(t, families, "tend_daemon_ready")
	assert.InDelta(t, 1.0, families["tend_daemon_ready"].GetMetric()[0].GetGauge().GetValue(), 0)

	summary := families["tend_handler_processing_seconds"].GetMetric()[0].GetSummary()
	assert.Equal(t, uint64(4), summary.GetSampleCount())
	assert.InDelta(t, 0.25, families["tend_handler_processing_seconds_avg"].GetMetric()[0].GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 3.0, families["tend_retry_succeeded_total"].GetMetric()[0].GetCounter().GetValue(), 0)
}

func TestHandler_MetricsJSON(t *testing.T) {
	srv := httptest.NewServer(exposition.NewHandler(newSource(t, true), quietLogger(t)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + exposition.MetricsJSONPath)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, true, got["ready"])

	handlers, ok := got["handlers"].(map[string]any)
	require.True(t, ok)
	video, ok := handlers["video"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "video", video["handler_type"])
	perf, ok := video["performance"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.4, perf["max_processing_time_seconds"], 1e-9)
	assert.InDelta(t, 3.0, perf["events_processed"], 0)
}

func TestHandler_RejectsOtherMethods(t *testing.T) {
	srv := httptest.NewServer(exposition.NewHandler(newSource(t, true), quietLogger(t)))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+exposition.HealthPath, "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	log.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}
