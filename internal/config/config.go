// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/regfetch/regfetch/internal/scrape"
)

// Config captures every configuration knob, loaded from file and
// REGFETCH_* environment variables.
type Config struct {
	Gateway     GatewayConfig             `mapstructure:"gateway"`
	HTTP        HTTPConfig                `mapstructure:"http"`
	Headless    HeadlessConfig            `mapstructure:"headless"`
	Batch       BatchConfig               `mapstructure:"batch"`
	Storage     StorageConfig             `mapstructure:"storage"`
	Structuring StructuringConfig         `mapstructure:"structuring"`
	Logging     LoggingConfig             `mapstructure:"logging"`
	Metrics     MetricsConfig             `mapstructure:"metrics"`
	Resources   map[string]ResourceConfig `mapstructure:"resources"`
}

// GatewayConfig governs admission control shared by all fetches.
type GatewayConfig struct {
	UserAgent          string  `mapstructure:"user_agent"`
	GlobalConcurrency  int     `mapstructure:"global_concurrency"`
	DefaultDelaySec    float64 `mapstructure:"default_delay_seconds"`
	DefaultConcurrency int     `mapstructure:"default_concurrency"`
}

// HTTPConfig configures the static transport and its retry envelope.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	BackoffBaseSec int `mapstructure:"backoff_base_seconds"`
	BackoffMaxSec  int `mapstructure:"backoff_max_seconds"`
}

// HeadlessConfig configures the browser renderer and its retry envelope.
type HeadlessConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxParallel      int     `mapstructure:"max_parallel"`
	NavTimeoutSec    int     `mapstructure:"nav_timeout_seconds"`
	RendersPerSecond float64 `mapstructure:"renders_per_second"`
	MaxAttempts      int     `mapstructure:"max_attempts"`
	BackoffBaseSec   int     `mapstructure:"backoff_base_seconds"`
	BackoffMaxSec    int     `mapstructure:"backoff_max_seconds"`
}

// BatchConfig bounds batch-level fan-out.
type BatchConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// StorageConfig sets output locations.
type StorageConfig struct {
	RawDir        string `mapstructure:"raw_dir"`
	StructuredDir string `mapstructure:"structured_dir"`
	DBPath        string `mapstructure:"db_path"`
}

// StructuringConfig gates the structuring service.
type StructuringConfig struct {
	MinChars int `mapstructure:"min_chars"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ResourceConfig is one resource override entry, keyed by resource key or
// the "*" wildcard.
type ResourceConfig struct {
	DelaySeconds float64 `mapstructure:"delay_seconds"`
	Concurrency  int     `mapstructure:"concurrency"`
	Mode         string  `mapstructure:"mode"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REGFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.user_agent", "regfetch/1.0 (+https://github.com/regfetch/regfetch)")
	v.SetDefault("gateway.global_concurrency", 12)
	v.SetDefault("gateway.default_delay_seconds", 2.0)
	v.SetDefault("gateway.default_concurrency", 2)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base_seconds", 2)
	v.SetDefault("http.backoff_max_seconds", 10)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.renders_per_second", 0.5)
	v.SetDefault("headless.max_attempts", 2)
	v.SetDefault("headless.backoff_base_seconds", 3)
	v.SetDefault("headless.backoff_max_seconds", 30)
	v.SetDefault("batch.max_concurrent", 10)
	v.SetDefault("storage.raw_dir", "output/raw")
	v.SetDefault("storage.structured_dir", "output/structured")
	v.SetDefault("storage.db_path", "output/regfetch.db")
	v.SetDefault("structuring.min_chars", 200)
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Gateway.GlobalConcurrency <= 0 {
		return fmt.Errorf("gateway.global_concurrency must be > 0")
	}
	if c.Gateway.DefaultDelaySec < 0 {
		return fmt.Errorf("gateway.default_delay_seconds must be >= 0")
	}
	if c.Gateway.DefaultConcurrency <= 0 {
		return fmt.Errorf("gateway.default_concurrency must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	for key, rc := range c.Resources {
		if rc.DelaySeconds < 0 {
			return fmt.Errorf("resources.%s.delay_seconds must be >= 0", key)
		}
		if mode := strings.ToLower(rc.Mode); mode != "" &&
			mode != string(scrape.FetchModeStatic) && mode != string(scrape.FetchModeDynamic) {
			return fmt.Errorf("resources.%s.mode must be static or dynamic", key)
		}
	}
	return nil
}

// ResourceOverrides converts the configured resource entries (plus the
// defaults as the wildcard, when no explicit wildcard is set) into the
// registry's override map.
func (c Config) ResourceOverrides() map[string]scrape.ResourceConfig {
	out := make(map[string]scrape.ResourceConfig, len(c.Resources)+1)
	for key, rc := range c.Resources {
		out[strings.ToLower(key)] = scrape.ResourceConfig{
			MinDelay:       secondsToDuration(rc.DelaySeconds),
			MaxConcurrency: rc.Concurrency,
			Mode:           scrape.FetchMode(strings.ToLower(rc.Mode)),
		}.Normalize()
	}
	if _, ok := out["*"]; !ok {
		out["*"] = scrape.ResourceConfig{
			MinDelay:       secondsToDuration(c.Gateway.DefaultDelaySec),
			MaxConcurrency: c.Gateway.DefaultConcurrency,
			Mode:           scrape.FetchModeStatic,
		}.Normalize()
	}
	return out
}

// HTTPTimeout is the static transport's per-request timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout is the renderer's navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
