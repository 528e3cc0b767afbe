// Package config defines service configuration and its loading.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/scoring"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Port is the HTTP listen port.
	Port string `koanf:"port"`

	DatabaseURL string `koanf:"database_url"`
	DBMaxConns  int32  `koanf:"db_max_conns"`
	DBMinConns  int32  `koanf:"db_min_conns"`

	// CacheBackend selects memory, redis or none.
	CacheBackend string `koanf:"cache_backend"`
	RedisURL     string `koanf:"redis_url"`
	CachePrefix  string `koanf:"cache_prefix"`
	// MemoryCacheCapacity bounds the in-process cache. Zero means unbounded.
	MemoryCacheCapacity int `koanf:"memory_cache_capacity"`

	// DependencyTimeoutMS bounds each store read made while serving a request.
	DependencyTimeoutMS int `koanf:"dependency_timeout_ms"`

	TrendLookbackDays     int     `koanf:"trend_lookback_days"`
	TrendRecentDays       int     `koanf:"trend_recent_days"`
	TrendThresholdPercent float64 `koanf:"trend_threshold_percent"`

	RescoreQueueSize   int `koanf:"rescore_queue_size"`
	RescoreWorkers     int `koanf:"rescore_workers"`
	RescoreMaxRetries  int `koanf:"rescore_max_retries"`
	RescoreRetryBaseMS int `koanf:"rescore_retry_base_ms"`

	// RateLimitRPS and RateLimitBurst bound requests per organization.
	// A non-positive RPS disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// OTELEndpoint is the OTLP gRPC collector address. Empty disables tracing.
	OTELEndpoint string `koanf:"otel_endpoint"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Port:                  DefaultPort,
		DatabaseURL:           DefaultDatabaseURL,
		DBMaxConns:            10,
		DBMinConns:            2,
		CacheBackend:          CacheBackendMemory,
		CachePrefix:           cache.DefaultPrefix,
		MemoryCacheCapacity:   10_000,
		DependencyTimeoutMS:   3000,
		TrendLookbackDays:     30,
		TrendRecentDays:       7,
		TrendThresholdPercent: scoring.DefaultTrendThreshold,
		RescoreQueueSize:      1024,
		RescoreWorkers:        4,
		RescoreMaxRetries:     3,
		RescoreRetryBaseMS:    200,
		RateLimitRPS:          50,
		RateLimitBurst:        100,
		ShutdownTimeoutMS:     10_000,
	}
}

// Validate checks the values that would make the service misbehave.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendNone:
	case CacheBackendRedis:
		if c.RedisURL == "" {
			return errors.New("redis_url is required when cache_backend is redis")
		}
	default:
		return fmt.Errorf("unknown cache_backend %q", c.CacheBackend)
	}
	if c.MemoryCacheCapacity < 0 {
		return errors.New("memory_cache_capacity must not be negative")
	}
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.DependencyTimeoutMS <= 0 {
		return errors.New("dependency_timeout_ms must be positive")
	}
	if c.TrendRecentDays <= 0 || c.TrendLookbackDays <= c.TrendRecentDays {
		return errors.New("trend_lookback_days must exceed trend_recent_days > 0")
	}
	if c.TrendThresholdPercent < 0 {
		return errors.New("trend_threshold_percent must not be negative")
	}
	if c.RescoreQueueSize <= 0 || c.RescoreWorkers <= 0 {
		return errors.New("rescore_queue_size and rescore_workers must be positive")
	}
	if c.RescoreMaxRetries < 0 {
		return errors.New("rescore_max_retries must not be negative")
	}
	return nil
}

// DependencyTimeout returns the per-read budget.
func (c *Config) DependencyTimeout() time.Duration {
	return time.Duration(c.DependencyTimeoutMS) * time.Millisecond
}

// RescoreRetryBase returns the first backoff interval of the rescore retry.
func (c *Config) RescoreRetryBase() time.Duration {
	return time.Duration(c.RescoreRetryBaseMS) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// TrendPolicy converts the trend settings.
func (c *Config) TrendPolicy() scoring.TrendPolicy {
	const day = 24 * time.Hour
	return scoring.TrendPolicy{
		Lookback:         time.Duration(c.TrendLookbackDays) * day,
		Recent:           time.Duration(c.TrendRecentDays) * day,
		ThresholdPercent: c.TrendThresholdPercent,
	}
}
