package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/tend/internal/core/domain"
)

func TestHandlerConfig_Accessors(t *testing.T) {
	cfg := domain.HandlerConfig{
		Enabled: true,
		Params: map[string]any{
			"notes_dir":            "Notes",
			"max_results":          "7",
			"similarity_threshold": 0.35,
			"timeout":              "1m30s",
			"threshold":            2,
			"extensions":           []any{".md", ".txt"},
			"broken":               map[string]any{"a": 1},
		},
	}

	assert.Equal(t, "Notes", cfg.String("notes_dir", "x"))
	assert.Equal(t, "x", cfg.String("missing", "x"))
	assert.Equal(t, 7, cfg.Int("max_results", 5))
	assert.Equal(t, 5, cfg.Int("broken", 5))
	assert.InDelta(t, 0.35, cfg.Float("similarity_threshold", 0.2), 1e-9)
	assert.Equal(t, 90*time.Second, cfg.Duration("timeout", time.Second))
	assert.Equal(t, 2*time.Second, cfg.Duration("threshold", time.Second))
	assert.Equal(t, time.Second, cfg.Duration("missing", time.Second))
	assert.Equal(t, []string{".md", ".txt"}, cfg.Strings("extensions", nil))
	assert.Equal(t, []string{"a"}, cfg.Strings("missing", []string{"a"}))
}

func TestProcessingMetrics_SuccessRate(t *testing.T) {
	assert.InDelta(t, 1.0, domain.ProcessingMetrics{}.SuccessRate(), 1e-9)
	m := domain.ProcessingMetrics{EventsProcessed: 3, EventsFailed: 1}
	assert.Equal(t, int64(4), m.Total())
	assert.InDelta(t, 0.75, m.SuccessRate(), 1e-9)
}
