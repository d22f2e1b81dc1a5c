package config

import "time"

// File is the on-disk shape of tend.yaml.
type File struct {
	Root             string                    `mapstructure:"root"`
	Debounce         time.Duration             `mapstructure:"debounce"`
	Ignore           []string                  `mapstructure:"ignore"`
	Extensions       []string                  `mapstructure:"extensions"`
	ShutdownGrace    time.Duration             `mapstructure:"shutdown_grace"`
	HandlerTimeout   time.Duration             `mapstructure:"handler_timeout"`
	SnapshotInterval time.Duration             `mapstructure:"snapshot_interval"`
	Listen           string                    `mapstructure:"listen"`
	Log              LogDTO                    `mapstructure:"log"`
	Retry            RetryDTO                  `mapstructure:"retry"`
	RateLimit        RateLimitDTO              `mapstructure:"rate_limit"`
	Handlers         map[string]map[string]any `mapstructure:"handlers"`
}

// LogDTO is the log section.
type LogDTO struct {
	File       string `mapstructure:"file"`
	JSON       bool   `mapstructure:"json"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// RetryDTO is the retry section.
type RetryDTO struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	Multiplier float64       `mapstructure:"multiplier"`
}

// RateLimitDTO is the rate_limit section.
type RateLimitDTO struct {
	Interval  time.Duration `mapstructure:"interval"`
	Burst     int           `mapstructure:"burst"`
	StateFile string        `mapstructure:"state_file"`
}
