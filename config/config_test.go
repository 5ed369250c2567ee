package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jewelcart/storefront/pkg/tracing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAPIURL, EnvLogLevel, EnvMetricsNamespace, EnvStoragePath, EnvRateLimit, EnvCacheBackend,
		EnvRateLimitScope,
		tracing.EnvTracingEnabled, tracing.EnvJaegerEndpoint, tracing.EnvSamplingRate,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "storefront", cfg.MetricsNamespace)
	assert.Empty(t, cfg.StoragePath)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, RateLimitPerEndpoint, cfg.RateLimitScope)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIURL, "https://api.jewelcart.example/api/")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvMetricsNamespace, "jewelcart")
	t.Setenv(EnvStoragePath, "/tmp/storefront.db")
	t.Setenv(EnvRateLimit, "12.5")
	t.Setenv(EnvCacheBackend, "Sturdyc")
	t.Setenv(EnvRateLimitScope, "shared")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.jewelcart.example/api", cfg.APIURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "jewelcart", cfg.MetricsNamespace)
	assert.Equal(t, "/tmp/storefront.db", cfg.StoragePath)
	assert.Equal(t, 12.5, cfg.RateLimit)
	assert.Equal(t, CacheSturdyc, cfg.CacheBackend)
	assert.Equal(t, RateLimitShared, cfg.RateLimitScope)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad url", EnvAPIURL, "not a url"},
		{"bad level", EnvLogLevel, "verbose"},
		{"bad namespace", EnvMetricsNamespace, "jewel-cart"},
		{"unparsable rate", EnvRateLimit, "fast"},
		{"negative rate", EnvRateLimit, "-1"},
		{"unknown cache", EnvCacheBackend, "redis"},
		{"unknown rate scope", EnvRateLimitScope, "host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_TracingEnabledNeedsEndpoint(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = ""
	assert.Error(t, cfg.Validate())

	cfg.Tracing.Endpoint = tracing.DefaultJaegerEndpoint
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TracingAgentEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = ""
	cfg.Tracing.AgentEndpoint = "jaeger-agent:6831"
	assert.NoError(t, cfg.Validate())

	cfg.Tracing.AgentEndpoint = "jaeger-agent"
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
