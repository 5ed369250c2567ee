// Package tracing sets up OpenTelemetry tracing with a Jaeger exporter for the storefront client
package tracing

import (
	"os"
	"strconv"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Environment variables read by ConfigFromEnv
const (
	EnvTracingEnabled = "STOREFRONT_TRACING_ENABLED"
	EnvServiceName    = "STOREFRONT_SERVICE_NAME"
	EnvEnvironment    = "STOREFRONT_ENVIRONMENT"
	EnvJaegerEndpoint = "JAEGER_ENDPOINT"
	EnvSamplingRate   = "STOREFRONT_TRACING_SAMPLING_RATE"

	// EnvAgentEndpoint is a host:port; when set spans go to the agent over UDP
	EnvAgentEndpoint = "JAEGER_AGENT_ENDPOINT"

	// EnvAttributes holds extra resource attributes as comma separated key=value pairs
	EnvAttributes = "STOREFRONT_TRACING_ATTRIBUTES"
)

const (
	DefaultServiceName    = "jewelcart-storefront-client"
	DefaultJaegerEndpoint = "http://localhost:14268/api/traces"
)

// Config represents the tracing configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	AgentEndpoint  string
	SamplingRate   float64
	Attributes     map[string]string
}

// DefaultConfig returns the default tracing configuration. Tracing is off unless enabled.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		ServiceName:    DefaultServiceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       DefaultJaegerEndpoint,
		SamplingRate:   1.0,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by the environment
func ConfigFromEnv() *Config {
	config := DefaultConfig()
	config.Enabled = TracingEnabled()
	config.ServiceName = getEnvOrDefault(EnvServiceName, config.ServiceName)
	config.Environment = getEnvOrDefault(EnvEnvironment, config.Environment)
	config.Endpoint = getEnvOrDefault(EnvJaegerEndpoint, config.Endpoint)
	config.AgentEndpoint = os.Getenv(EnvAgentEndpoint)
	config.Attributes = parseAttributes(os.Getenv(EnvAttributes))
	config.SamplingRate = GetSamplingRate()
	return config
}

// Setup initializes tracing based on the configuration.
// It returns a nil provider when tracing is disabled.
func Setup(config *Config) (*sdktrace.TracerProvider, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	return NewProvider(config)
}

// parseAttributes reads "k1=v1,k2=v2"; malformed pairs are skipped
func parseAttributes(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	attrs := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// TracingEnabled reports whether STOREFRONT_TRACING_ENABLED is set to a true value
func TracingEnabled() bool {
	enabled, err := strconv.ParseBool(getEnvOrDefault(EnvTracingEnabled, "false"))
	return err == nil && enabled
}

// GetSamplingRate returns the sampling rate from the environment, clamped to [0, 1]
func GetSamplingRate() float64 {
	rate, err := strconv.ParseFloat(getEnvOrDefault(EnvSamplingRate, "1"), 64)
	if err != nil {
		return 1.0
	}
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	default:
		return rate
	}
}
