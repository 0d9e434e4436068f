package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// prometheus metrics listener
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// tracing
	HoneycombEnabled bool `toml:"honeycomb_enabled"`
	// redis backs the frame ingest rate limiter
	RedisHost             string `toml:"redis_host"`
	RedisPort             string `toml:"redis_port"`
	FramesRateLimitPerMin int    `toml:"frames_rate_limit_per_min"`
	// http
	MaxRequestBodyBytes int64    `toml:"max_request_body_bytes"`
	CorsAllowedOrigins  []string `toml:"cors_allowed_origins"`
	// sessions
	ProtocolsPath  string        `toml:"protocols_path"`
	OverlayCacheMB int           `toml:"overlay_cache_mb"`
	OverlayTTL     time.Duration `toml:"overlay_ttl"`
	TickInterval   time.Duration `toml:"tick_interval"`
	VerdictMaxAge  time.Duration `toml:"verdict_max_age"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the config of env from the TOML file at path and fills in defaults.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config [%s]: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing in [%s]", env, path)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config [%s] %s: %w", path, env, err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.FramesRateLimitPerMin == 0 {
		// a 30 fps camera plus headroom
		c.FramesRateLimitPerMin = 2400
	}
	if c.MaxRequestBodyBytes == 0 {
		c.MaxRequestBodyBytes = 1 << 20
	}
	if c.OverlayCacheMB == 0 {
		c.OverlayCacheMB = 16
	}
	if c.OverlayTTL == 0 {
		c.OverlayTTL = 3 * time.Second
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
}

func (c *Config) Validate() error {
	var err error
	if c.Port <= 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.FramesRateLimitPerMin < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid frames rate limit: %d", c.FramesRateLimitPerMin))
	}
	if c.TickInterval < 0 || c.OverlayTTL < 0 || c.VerdictMaxAge < 0 {
		err = multierr.Append(err, errors.New("durations must not be negative"))
	}
	return err
}
