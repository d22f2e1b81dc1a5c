package domain

import (
	"time"

	"github.com/spf13/cast"
)

// Defaults applied by the config loader when a value is absent.
const (
	DefaultDebounce             = time.Second
	DefaultShutdownGrace        = 10 * time.Second
	DefaultHandlerTimeout       = 2 * time.Minute
	DefaultSnapshotInterval     = time.Minute
	DefaultListenAddr           = "127.0.0.1:9477"
	DefaultWindowSize           = 10
	DefaultPerformanceThreshold = 5 * time.Second
	DefaultMinSuccessRate       = 0.5
	DefaultMaxConsecutiveFails  = 3
	DefaultSlowEventLimit       = 5
	DefaultMaxRetries           = 3
	DefaultBaseDelay            = 5 * time.Second
	DefaultMaxDelay             = 60 * time.Second
	DefaultBackoffMultiplier    = 2.0
	DefaultRateLimitInterval    = 2 * time.Second
	DefaultRateLimitBurst       = 1
)

// DefaultIgnorePatterns are gitignore-style patterns never delivered to handlers.
var DefaultIgnorePatterns = []string{
	".git/",
	".jj/",
	".obsidian/",
	".trash/",
	TendDirName + "/",
	"*.tmp",
	"*.swp",
	"*.swx",
	"*~",
	".#*",
	`\#*#`,
	".DS_Store",
}

// DefaultExtensions are the file extensions watched when none are configured.
var DefaultExtensions = []string{".md", ".jpg", ".jpeg", ".png", ".heic"}

// Config is the validated daemon configuration. It is read-only once the daemon starts.
type Config struct {
	Root             string
	Debounce         time.Duration
	Ignore           []string
	Extensions       []string
	ShutdownGrace    time.Duration
	HandlerTimeout   time.Duration
	SnapshotInterval time.Duration
	Listen           string
	Log              LogConfig
	Retry            RetryConfig
	RateLimit        RateLimitConfig
	Handlers         map[string]HandlerConfig
}

// LogConfig configures daemon log output.
type LogConfig struct {
	File       string
	JSON       bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// RetryConfig configures the backoff policy shared by handlers.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// RateLimitConfig configures the shared external-service rate limiter.
type RateLimitConfig struct {
	Interval  time.Duration
	Burst     int
	StateFile string
}

// HandlerConfig is the opaque per-handler configuration block.
type HandlerConfig struct {
	Enabled bool
	Params  map[string]any
}

// String returns a string parameter or def when absent or not convertible.
func (c HandlerConfig) String(key, def string) string {
	v, ok := c.Params[key]
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return def
	}
	return s
}

// Int returns an integer parameter or def.
func (c HandlerConfig) Int(key string, def int) int {
	v, ok := c.Params[key]
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// Float returns a float parameter or def.
func (c HandlerConfig) Float(key string, def float64) float64 {
	v, ok := c.Params[key]
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// Duration returns a duration parameter or def. Bare numbers are read as seconds.
func (c HandlerConfig) Duration(key string, def time.Duration) time.Duration {
	v, ok := c.Params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int, int64, float64:
		return time.Duration(cast.ToFloat64(n) * float64(time.Second))
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def
	}
	return d
}

// Strings returns a string slice parameter or def.
func (c HandlerConfig) Strings(key string, def []string) []string {
	v, ok := c.Params[key]
	if !ok {
		return def
	}
	s, err := cast.ToStringSliceE(v)
	if err != nil || len(s) == 0 {
		return def
	}
	return s
}
