package core

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the procurement pipeline. It supports
// the same three-layer priority as the framework it is modeled on:
//  1. defaults (DefaultConfig)
//  2. environment variables (LoadFromEnv)
//  3. functional options (highest priority)
type Config struct {
	ServiceName string `json:"service_name" env:"SUPPLYCHAIN_SERVICE_NAME" default:"supplychain"`

	Redis      RedisConfig      `json:"redis"`
	HTTP       HTTPConfig       `json:"http"`
	Executor   ExecutorConfig   `json:"executor"`
	Visa       VisaConfig       `json:"visa"`
	Logging    LoggingConfig    `json:"logging"`

	logger Logger `json:"-"`
}

// RedisConfig configures the shared Redis connection used by the
// Manifest store, SupplyOrder store, the Visa rate-limit counters and
// the task queue realization of the Executor.
type RedisConfig struct {
	URL       string `json:"url" env:"SUPPLYCHAIN_REDIS_URL" default:"redis://localhost:6379/0"`
	Namespace string `json:"namespace" env:"SUPPLYCHAIN_REDIS_NAMESPACE" default:"supplychain"`
	PoolSize  int    `json:"pool_size" env:"SUPPLYCHAIN_REDIS_POOL_SIZE" default:"10"`
}

// HTTPConfig configures the traced client used by provider request
// handlers.
type HTTPConfig struct {
	Timeout         time.Duration `json:"timeout" env:"SUPPLYCHAIN_HTTP_TIMEOUT" default:"30s"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"SUPPLYCHAIN_HTTP_MAX_IDLE_CONNS" default:"100"`
}

// ExecutorConfig configures the asynchronous driver that walks chains.
type ExecutorConfig struct {
	MaxConcurrency  int           `json:"max_concurrency" env:"SUPPLYCHAIN_EXECUTOR_MAX_CONCURRENCY" default:"8"`
	HandlerTimeout  time.Duration `json:"handler_timeout" env:"SUPPLYCHAIN_EXECUTOR_HANDLER_TIMEOUT" default:"120s"`
	QueueKey        string        `json:"queue_key" env:"SUPPLYCHAIN_EXECUTOR_QUEUE_KEY" default:"supplychain:orders:queue"`
}

// VisaConfig holds a default rate-limit bucket. quartermaster.Resolver
// does not consult it: a Quartermaster with no Visa is treated as
// unrestricted even when its Requisition sets visa_required, and every
// Visa carries its own calls_allowed/interval_seconds.
type VisaConfig struct {
	DefaultCallsAllowed   int           `json:"default_calls_allowed" env:"SUPPLYCHAIN_VISA_DEFAULT_CALLS" default:"4"`
	DefaultIntervalSeconds int          `json:"default_interval_seconds" env:"SUPPLYCHAIN_VISA_DEFAULT_INTERVAL" default:"60"`
}

// LoggingConfig configures ComponentLogger.
type LoggingConfig struct {
	Level  string `json:"level" env:"SUPPLYCHAIN_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"SUPPLYCHAIN_LOG_FORMAT" default:"json"`
	Output string `json:"output" env:"SUPPLYCHAIN_LOG_OUTPUT" default:"stdout"`
}

// Option mutates a Config during construction. Options run after
// environment loading and therefore win any conflict.
type Option func(*Config) error

// DefaultConfig returns the hardcoded baseline, equivalent to every
// struct tag's `default` value.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: "supplychain",
		Redis: RedisConfig{
			URL:       "redis://localhost:6379/0",
			Namespace: "supplychain",
			PoolSize:  10,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			MaxIdleConns: 100,
		},
		Executor: ExecutorConfig{
			MaxConcurrency: 8,
			HandlerTimeout: 120 * time.Second,
			QueueKey:       "supplychain:orders:queue",
		},
		Visa: VisaConfig{
			DefaultCallsAllowed:    4,
			DefaultIntervalSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		logger: NoOpLogger{},
	}
}

// NewConfig builds a Config from defaults, then the environment, then
// the supplied options, in that order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.logger = NewComponentLogger(cfg.Logging, cfg.ServiceName)
	return cfg, nil
}

// LoadFromEnv overlays the environment variables read below onto the
// current values. Unset variables leave the current value (usually a
// default) untouched. SUPPLYCHAIN_HTTP_MAX_IDLE_CONNS,
// SUPPLYCHAIN_EXECUTOR_QUEUE_KEY, SUPPLYCHAIN_VISA_DEFAULT_CALLS,
// SUPPLYCHAIN_VISA_DEFAULT_INTERVAL and SUPPLYCHAIN_LOG_OUTPUT appear
// in struct tags but are not read here.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SUPPLYCHAIN_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("SUPPLYCHAIN_REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("SUPPLYCHAIN_REDIS_NAMESPACE"); v != "" {
		c.Redis.Namespace = v
	}
	if v := os.Getenv("SUPPLYCHAIN_REDIS_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SUPPLYCHAIN_REDIS_POOL_SIZE: %v", ErrConfig, err)
		}
		c.Redis.PoolSize = n
	}
	if v := os.Getenv("SUPPLYCHAIN_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: SUPPLYCHAIN_HTTP_TIMEOUT: %v", ErrConfig, err)
		}
		c.HTTP.Timeout = d
	}
	if v := os.Getenv("SUPPLYCHAIN_EXECUTOR_MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SUPPLYCHAIN_EXECUTOR_MAX_CONCURRENCY: %v", ErrConfig, err)
		}
		c.Executor.MaxConcurrency = n
	}
	if v := os.Getenv("SUPPLYCHAIN_EXECUTOR_HANDLER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: SUPPLYCHAIN_EXECUTOR_HANDLER_TIMEOUT: %v", ErrConfig, err)
		}
		c.Executor.HandlerTimeout = d
	}
	if v := os.Getenv("SUPPLYCHAIN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SUPPLYCHAIN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return nil
}

// Validate rejects a Config that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("%w: redis URL must not be empty", ErrConfig)
	}
	if c.Executor.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: executor max concurrency must be positive", ErrConfig)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", ErrConfig)
	}
	return nil
}

// Logger returns the configured logger, defaulting to a no-op.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		return NoOpLogger{}
	}
	return c.logger
}

// WithServiceName overrides the service name used in log lines.
func WithServiceName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("%w: service name must not be empty", ErrConfig)
		}
		c.ServiceName = name
		return nil
	}
}

// WithRedisURL overrides the Redis connection string.
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("%w: redis URL must not be empty", ErrConfig)
		}
		c.Redis.URL = url
		return nil
	}
}

// WithMaxConcurrency overrides the executor's worker pool size.
func WithMaxConcurrency(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max concurrency must be positive", ErrConfig)
		}
		c.Executor.MaxConcurrency = n
		return nil
	}
}

// WithLogger installs a caller-provided logger, bypassing
// NewComponentLogger entirely.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}
