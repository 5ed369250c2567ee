// Package config loads the storefront client configuration from the environment
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jewelcart/storefront/pkg/tracing"
)

// Environment variables
const (
	EnvAPIURL           = "STOREFRONT_API_URL"
	EnvLogLevel         = "STOREFRONT_LOG_LEVEL"
	EnvMetricsNamespace = "STOREFRONT_METRICS_NAMESPACE"
	EnvStoragePath      = "STOREFRONT_STORAGE_PATH"
	EnvRateLimit        = "STOREFRONT_RATE_LIMIT"
	EnvCacheBackend     = "STOREFRONT_CACHE_BACKEND"
	EnvRateLimitScope   = "STOREFRONT_RATE_LIMIT_SCOPE"
)

// Rate limit scopes
const (
	RateLimitPerEndpoint = "endpoint"
	RateLimitShared      = "shared"
)

// Cache backends
const (
	CacheMemory  = "memory"
	CacheSturdyc = "sturdyc"
)

// DefaultAPIURL is used when STOREFRONT_API_URL is not set
const DefaultAPIURL = "http://localhost:5000/api"

// Config is the runtime configuration. Cache TTL and the retry policy are fixed and live in
// the storefront package.
type Config struct {
	APIURL           string
	LogLevel         string
	MetricsNamespace string

	// StoragePath is the SQLite file the session is persisted in; empty keeps it in memory
	StoragePath string

	// RateLimit is the maximum requests per second; 0 disables throttling
	RateLimit float64

	// RateLimitScope is RateLimitPerEndpoint for one bucket per "METHOD /path", or
	// RateLimitShared for a single bucket
	RateLimitScope string

	// CacheBackend selects the response cache implementation
	CacheBackend string

	Tracing *tracing.Config
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		APIURL:           DefaultAPIURL,
		LogLevel:         "info",
		MetricsNamespace: "storefront",
		CacheBackend:     CacheMemory,
		RateLimitScope:   RateLimitPerEndpoint,
		Tracing:          tracing.DefaultConfig(),
	}
}

// Load reads the environment and validates the result
func Load() (*Config, error) {
	cfg := Default()
	cfg.APIURL = strings.TrimRight(getEnvOrDefault(EnvAPIURL, cfg.APIURL), "/")
	cfg.LogLevel = strings.ToLower(getEnvOrDefault(EnvLogLevel, cfg.LogLevel))
	cfg.MetricsNamespace = getEnvOrDefault(EnvMetricsNamespace, cfg.MetricsNamespace)
	cfg.StoragePath = os.Getenv(EnvStoragePath)
	cfg.CacheBackend = strings.ToLower(getEnvOrDefault(EnvCacheBackend, cfg.CacheBackend))
	cfg.RateLimitScope = strings.ToLower(getEnvOrDefault(EnvRateLimitScope, cfg.RateLimitScope))
	cfg.Tracing = tracing.ConfigFromEnv()

	if raw := os.Getenv(EnvRateLimit); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvRateLimit, raw, err)
		}
		cfg.RateLimit = limit
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks the configuration
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.MetricsNamespace, validation.Required, validation.Match(metricNamePattern)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateLimitScope, validation.Required, validation.In(RateLimitPerEndpoint, RateLimitShared)),
		validation.Field(&c.CacheBackend, validation.Required, validation.In(CacheMemory, CacheSturdyc)),
		validation.Field(&c.Tracing, validation.Required, validation.By(validateTracing)),
	)
}

func validateTracing(value interface{}) error {
	t, ok := value.(*tracing.Config)
	if !ok || t == nil || !t.Enabled {
		return nil
	}
	return validation.ValidateStruct(t,
		validation.Field(&t.ServiceName, validation.Required),
		validation.Field(&t.Endpoint, validation.When(t.AgentEndpoint == "", validation.Required), is.URL),
		validation.Field(&t.AgentEndpoint, is.DialString),
		validation.Field(&t.SamplingRate, validation.Min(0.0), validation.Max(1.0)),
	)
}

// NewLogger builds a production zap logger at the configured level
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
