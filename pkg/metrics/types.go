// Package metrics collects client-side request, retry and cache metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the interface for metrics collection
type MetricsCollector interface {
	// RecordRequest records a completed logical request with its final status code
	RecordRequest(endpoint string, code string, duration time.Duration)

	// RecordError records a failed request by error kind
	RecordError(endpoint string, kind string)

	// RecordActiveRequests updates the in-flight requests gauge
	RecordActiveRequests(endpoint string, delta int)

	// RecordRetry records one retry of a request
	RecordRetry(endpoint string)

	// RecordResponseSize records the size of a response body
	RecordResponseSize(endpoint string, size int)

	// RecordCacheLookup records a service-layer cache hit or miss
	RecordCacheLookup(family string, hit bool)

	// GetRegistry returns the prometheus registry
	GetRegistry() *prometheus.Registry
}

// Config holds configuration for metrics collection
type Config struct {
	// Namespace for metrics (e.g., "storefront")
	Namespace string

	// Subsystem for metrics (e.g., "client")
	Subsystem string

	// Enable histogram buckets for latency distribution
	EnableHistogram bool

	// Custom histogram buckets (in seconds)
	HistogramBuckets []float64

	// Enable per-endpoint labels
	EnablePerEndpointMetrics bool

	// Constant labels to add to all metrics
	ConstLabels map[string]string
}

// DefaultConfig returns the default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace:                "storefront",
		Subsystem:                "client",
		EnableHistogram:          true,
		EnablePerEndpointMetrics: true,
		HistogramBuckets: []float64{
			0.01,  // 10ms
			0.05,  // 50ms
			0.1,   // 100ms
			0.25,  // 250ms
			0.5,   // 500ms
			1.0,   // 1s
			2.5,   // 2.5s
			5.0,   // 5s
			10.0,  // 10s, one attempt timeout
			20.0,  // 20s
			46.0,  // four timed out attempts plus backoff
		},
		ConstLabels: make(map[string]string),
	}
}

// ConfigOption is a function that configures a Config
type ConfigOption func(*Config)

// WithNamespace sets the namespace for metrics
func WithNamespace(namespace string) ConfigOption {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the subsystem for metrics
func WithSubsystem(subsystem string) ConfigOption {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithHistogramBuckets sets custom histogram buckets
func WithHistogramBuckets(buckets []float64) ConfigOption {
	return func(c *Config) {
		c.HistogramBuckets = buckets
	}
}

// WithConstLabels sets constant labels for all metrics
func WithConstLabels(labels map[string]string) ConfigOption {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithoutHistogram disables histogram metrics
func WithoutHistogram() ConfigOption {
	return func(c *Config) {
		c.EnableHistogram = false
	}
}

// WithoutPerEndpointMetrics drops the endpoint label
func WithoutPerEndpointMetrics() ConfigOption {
	return func(c *Config) {
		c.EnablePerEndpointMetrics = false
	}
}
