// Package config loads the tend daemon configuration with viper.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

// EnvPrefix is the prefix of environment overrides, e.g. TEND_DEBOUNCE=250ms.
const EnvPrefix = "TEND"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader on top of viper.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the configuration for root. An empty path means <root>/tend.yaml, which may be
// absent; an explicit path must exist.
func (l *Loader) Load(root, path string) (*domain.Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "root", root)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(absRoot, domain.ConfigFileName)
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", path)
		}
		if l.logger != nil {
			l.logger.Info("no config file found, using defaults", "path", path)
		}
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, err.Error()), "path", path)
	}

	cfg, err := toDomain(&file, absRoot, filepath.Dir(path))
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	if err := Validate(cfg); err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("root", "")
	v.SetDefault("debounce", domain.DefaultDebounce)
	v.SetDefault("ignore", []string{})
	v.SetDefault("extensions", domain.DefaultExtensions)
	v.SetDefault("shutdown_grace", domain.DefaultShutdownGrace)
	v.SetDefault("handler_timeout", domain.DefaultHandlerTimeout)
	v.SetDefault("snapshot_interval", domain.DefaultSnapshotInterval)
	v.SetDefault("listen", domain.DefaultListenAddr)
	v.SetDefault("log.file", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("retry.max_retries", domain.DefaultMaxRetries)
	v.SetDefault("retry.base_delay", domain.DefaultBaseDelay)
	v.SetDefault("retry.max_delay", domain.DefaultMaxDelay)
	v.SetDefault("retry.multiplier", domain.DefaultBackoffMultiplier)
	v.SetDefault("rate_limit.interval", domain.DefaultRateLimitInterval)
	v.SetDefault("rate_limit.burst", domain.DefaultRateLimitBurst)
	v.SetDefault("rate_limit.state_file", filepath.Join(domain.TendDirName, domain.RateLimitStateName))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// toDomain converts the decoded file into a domain.Config, resolving relative paths.
func toDomain(f *File, root, configDir string) (*domain.Config, error) {
	cfg := &domain.Config{
		Root:             root,
		Debounce:         f.Debounce,
		Ignore:           mergeIgnore(f.Ignore),
		Extensions:       f.Extensions,
		ShutdownGrace:    f.ShutdownGrace,
		HandlerTimeout:   f.HandlerTimeout,
		SnapshotInterval: f.SnapshotInterval,
		Listen:           f.Listen,
		Log: domain.LogConfig{
			File:       f.Log.File,
			JSON:       f.Log.JSON,
			MaxSizeMB:  f.Log.MaxSizeMB,
			MaxBackups: f.Log.MaxBackups,
			MaxAgeDays: f.Log.MaxAgeDays,
		},
		Retry: domain.RetryConfig{
			MaxRetries: f.Retry.MaxRetries,
			BaseDelay:  f.Retry.BaseDelay,
			MaxDelay:   f.Retry.MaxDelay,
			Multiplier: f.Retry.Multiplier,
		},
		RateLimit: domain.RateLimitConfig{
			Interval:  f.RateLimit.Interval,
			Burst:     f.RateLimit.Burst,
			StateFile: f.RateLimit.StateFile,
		},
		Handlers: make(map[string]domain.HandlerConfig, len(f.Handlers)),
	}

	if f.Root != "" {
		cfg.Root = f.Root
		if !filepath.IsAbs(cfg.Root) {
			cfg.Root = filepath.Join(configDir, cfg.Root)
		}
		cfg.Root = filepath.Clean(cfg.Root)
	}
	if cfg.RateLimit.StateFile != "" && !filepath.IsAbs(cfg.RateLimit.StateFile) {
		cfg.RateLimit.StateFile = filepath.Join(cfg.Root, cfg.RateLimit.StateFile)
	}
	if cfg.Log.File != "" && !filepath.IsAbs(cfg.Log.File) {
		cfg.Log.File = filepath.Join(cfg.Root, cfg.Log.File)
	}

	for name, raw := range f.Handlers {
		hc := domain.HandlerConfig{Enabled: true, Params: make(map[string]any, len(raw))}
		for k, v := range raw {
			if k == "enabled" {
				enabled, err := cast.ToBoolE(v)
				if err != nil {
					return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "enabled must be a boolean"), "handler", name)
				}
				hc.Enabled = enabled
				continue
			}
			hc.Params[k] = v
		}
		cfg.Handlers[name] = hc
	}

	return cfg, nil
}

// mergeIgnore returns the default ignore patterns followed by the configured ones.
func mergeIgnore(extra []string) []string {
	out := slices.Clone(domain.DefaultIgnorePatterns)
	for _, p := range extra {
		p = strings.TrimSpace(p)
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks value ranges of a configuration.
func Validate(cfg *domain.Config) error {
	invalid := func(field, msg string) error {
		return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, msg), "field", field)
	}

	info, err := os.Stat(cfg.Root)
	switch {
	case err != nil:
		return zerr.With(invalid("root", "root does not exist"), "root", cfg.Root)
	case !info.IsDir():
		return zerr.With(invalid("root", "root is not a directory"), "root", cfg.Root)
	}

	switch {
	case cfg.Debounce < 0:
		return invalid("debounce", "must not be negative")
	case cfg.ShutdownGrace < 0:
		return invalid("shutdown_grace", "must not be negative")
	case cfg.HandlerTimeout < 0:
		return invalid("handler_timeout", "must not be negative")
	case cfg.SnapshotInterval < 0:
		return invalid("snapshot_interval", "must not be negative")
	case cfg.Retry.MaxRetries < 0:
		return invalid("retry.max_retries", "must not be negative")
	case cfg.Retry.BaseDelay < 0:
		return invalid("retry.base_delay", "must not be negative")
	case cfg.Retry.MaxDelay < 0:
		return invalid("retry.max_delay", "must not be negative")
	case cfg.Retry.Multiplier < 1:
		return invalid("retry.multiplier", "must be at least 1")
	case cfg.RateLimit.Interval < 0:
		return invalid("rate_limit.interval", "must not be negative")
	case cfg.RateLimit.Burst < 1:
		return invalid("rate_limit.burst", "must be at least 1")
	case cfg.Log.MaxSizeMB < 0:
		return invalid("log.max_size_mb", "must not be negative")
	}

	for name, hc := range cfg.Handlers {
		if rate := hc.Float("min_success_rate", domain.DefaultMinSuccessRate); rate < 0 || rate > 1 {
			return zerr.With(invalid("min_success_rate", "must be between 0 and 1"), "handler", name)
		}
		if size := hc.Int("window_size", domain.DefaultWindowSize); size < 1 {
			return zerr.With(invalid("window_size", "must be at least 1"), "handler", name)
		}
		if threshold := hc.Duration("performance_threshold", domain.DefaultPerformanceThreshold); threshold <= 0 {
			return zerr.With(invalid("performance_threshold", "must be positive"), "handler", name)
		}
	}

	return nil
}
