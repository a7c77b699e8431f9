package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string
	CatalogPath string

	LogFormat string
	LogLevel  string

	TaxRateBps       int
	CartTTL          time.Duration
	SessionTTL       time.Duration
	LockTTL          time.Duration
	LockRetryBackoff time.Duration
	LockMaxWait      time.Duration
	IdempotencyTTL   time.Duration

	CustomizeLockInclusions bool
	CustomizeMaxSauces      int

	POS     POSConfig
	Queue   QueueConfig
	Limits  RateLimitConfig
	Tracing TracingConfig

	CORSAllowedOrigins []string
	BodyLimitBytes     int64
	AdminToken         string
	MetricsNamespace   string
	HTTPBuckets        string
}

// POSConfig configures the point-of-sale submitter and its breaker.
type POSConfig struct {
	BaseURL            string
	APIKey             string
	Timeout            time.Duration
	MaxAttempts        int
	RetryBase          time.Duration
	CircuitMinRequests int
	CircuitFailRatio   float64
	CircuitOpenFor     time.Duration
}

// Configured reports whether a remote POS is set.
func (p POSConfig) Configured() bool {
	return strings.TrimSpace(p.BaseURL) != ""
}

// QueueConfig selects and tunes the background queue.
type QueueConfig struct {
	Backend           string
	RedisPrefix       string
	MaxAttempts       int
	Concurrency       int
	VisibilityTimeout time.Duration
	RetryBase         time.Duration
	DedupTTL          time.Duration
}

// RateLimitConfig holds the per-client request budgets.
type RateLimitConfig struct {
	Enabled        bool
	Window         time.Duration
	Max            int
	CheckoutPerMin int64
}

// TracingConfig mirrors obs.TracingConfig.
type TracingConfig struct {
	Enabled       bool
	ServiceName   string
	Endpoint      string
	Exporter      string
	SamplingRatio float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		Port:        valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL: k.String("DATABASE_URL"),
		RedisURL:    k.String("REDIS_URL"),
		CatalogPath: valueOrDefault(k.String("CATALOG_PATH"), "configs/menu.json"),

		LogFormat: valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),

		TaxRateBps:       parseInt(k.String("TAX_RATE_BPS"), 800),
		CartTTL:          parseDuration(k.String("CART_TTL"), "72h"),
		SessionTTL:       parseDuration(k.String("SESSION_TTL"), "2h"),
		LockTTL:          parseDuration(k.String("LOCK_TTL"), "5s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "25ms"),
		LockMaxWait:      parseDuration(k.String("LOCK_MAX_WAIT"), "2s"),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		CustomizeLockInclusions: parseBool(k.String("CUSTOMIZE_LOCK_INCLUSIONS")),
		CustomizeMaxSauces:      parseInt(k.String("CUSTOMIZE_MAX_SAUCES"), 0),

		POS: POSConfig{
			BaseURL:            strings.TrimSpace(k.String("POS_BASE_URL")),
			APIKey:             k.String("POS_API_KEY"),
			Timeout:            parseDuration(k.String("POS_TIMEOUT"), "10s"),
			MaxAttempts:        parseInt(k.String("POS_MAX_ATTEMPTS"), 3),
			RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
			CircuitMinRequests: parseInt(k.String("CIRCUIT_POS_MIN_REQUESTS"), 5),
			CircuitFailRatio:   parseFloat(k.String("CIRCUIT_POS_FAILURE_RATIO"), 0.5),
			CircuitOpenFor:     parseDuration(k.String("CIRCUIT_POS_OPEN_FOR"), "30s"),
		},
		Queue: QueueConfig{
			Backend:           strings.ToLower(valueOrDefault(k.String("QUEUE_BACKEND"), "redis")),
			RedisPrefix:       valueOrDefault(k.String("QUEUE_REDIS_PREFIX"), "zawadi"),
			MaxAttempts:       parseInt(k.String("QUEUE_MAX_ATTEMPTS"), 8),
			Concurrency:       parseInt(k.String("QUEUE_CONCURRENCY"), 4),
			VisibilityTimeout: parseDuration(k.String("QUEUE_VISIBILITY_TIMEOUT"), "60s"),
			RetryBase:         parseDuration(k.String("QUEUE_RETRY_BASE"), "2s"),
			DedupTTL:          parseDuration(k.String("QUEUE_DEDUP_TTL"), "24h"),
		},
		Limits: RateLimitConfig{
			Enabled:        !strings.EqualFold(strings.TrimSpace(k.String("RATE_LIMIT_ENABLED")), "false"),
			Window:         parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
			Max:            parseInt(k.String("RATE_LIMIT_MAX"), 120),
			CheckoutPerMin: int64(parseInt(k.String("RATE_LIMIT_CHECKOUT_PER_MIN"), 10)),
		},
		Tracing: TracingConfig{
			Enabled:       parseBool(k.String("OTEL_ENABLED")),
			ServiceName:   valueOrDefault(k.String("OTEL_SERVICE_NAME"), "zawadi-api"),
			Endpoint:      k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Exporter:      valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "otlp"),
			SamplingRatio: parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 1),
		},

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		AdminToken:         strings.TrimSpace(k.String("ADMIN_TOKEN")),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), "zawadi"),
		HTTPBuckets:        k.String("OBS_HTTP_BUCKETS_MS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.TaxRateBps < 0 || c.TaxRateBps > 10000 {
		errs = append(errs, errors.New("TAX_RATE_BPS must be between 0 and 10000"))
	}
	if c.CustomizeMaxSauces < 0 {
		errs = append(errs, errors.New("CUSTOMIZE_MAX_SAUCES must not be negative"))
	}
	switch c.Queue.Backend {
	case "redis", "asynq":
	default:
		errs = append(errs, fmt.Errorf("QUEUE_BACKEND %q is not one of redis, asynq", c.Queue.Backend))
	}
	return errors.Join(errs...)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
