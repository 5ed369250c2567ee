package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector for Prometheus
type PrometheusCollector struct {
	config   *Config
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	responseSize    *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector with its own registry
func NewPrometheusCollector(opts ...ConfigOption) (*PrometheusCollector, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	collector := &PrometheusCollector{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	if err := collector.initMetrics(); err != nil {
		return nil, err
	}

	return collector, nil
}

// labels prepends the endpoint label when per-endpoint metrics are enabled
func (p *PrometheusCollector) labels(names ...string) []string {
	if !p.config.EnablePerEndpointMetrics {
		return names
	}
	return append([]string{"endpoint"}, names...)
}

func (p *PrometheusCollector) values(endpoint string, values ...string) []string {
	if !p.config.EnablePerEndpointMetrics {
		return values
	}
	return append([]string{endpoint}, values...)
}

func (p *PrometheusCollector) initMetrics() error {
	p.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of API requests, counted once per logical request",
			ConstLabels: p.config.ConstLabels,
		},
		p.labels("code"),
	)

	if p.config.EnableHistogram {
		p.requestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        "request_duration_seconds",
				Help:        "Histogram of API request duration in seconds, retries included",
				Buckets:     p.config.HistogramBuckets,
				ConstLabels: p.config.ConstLabels,
			},
			p.labels("code"),
		)
	}

	p.activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "active_requests",
			Help:        "Number of in-flight API requests",
			ConstLabels: p.config.ConstLabels,
		},
		p.labels(),
	)

	p.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of failed API requests by error kind",
			ConstLabels: p.config.ConstLabels,
		},
		p.labels("kind"),
	)

	p.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "retries_total",
			Help:        "Total number of retried attempts",
			ConstLabels: p.config.ConstLabels,
		},
		p.labels(),
	)

	p.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "response_size_bytes",
			Help:        "Histogram of response body sizes (bytes)",
			Buckets:     []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304},
			ConstLabels: p.config.ConstLabels,
		},
		p.labels(),
	)

	p.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "cache_lookups_total",
			Help:        "Total number of read-through cache lookups",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"family", "result"},
	)

	p.registry.MustRegister(
		p.requestsTotal,
		p.activeRequests,
		p.errorsTotal,
		p.retriesTotal,
		p.responseSize,
		p.cacheLookups,
	)

	if p.config.EnableHistogram {
		p.registry.MustRegister(p.requestDuration)
	}

	return nil
}

// RecordRequest records a completed request
func (p *PrometheusCollector) RecordRequest(endpoint string, code string, duration time.Duration) {
	values := p.values(endpoint, code)
	p.requestsTotal.WithLabelValues(values...).Inc()
	if p.config.EnableHistogram {
		p.requestDuration.WithLabelValues(values...).Observe(duration.Seconds())
	}
}

// RecordError records a failed request
func (p *PrometheusCollector) RecordError(endpoint string, kind string) {
	p.errorsTotal.WithLabelValues(p.values(endpoint, kind)...).Inc()
}

// RecordActiveRequests updates the active requests gauge
func (p *PrometheusCollector) RecordActiveRequests(endpoint string, delta int) {
	p.activeRequests.WithLabelValues(p.values(endpoint)...).Add(float64(delta))
}

// RecordRetry records one retry
func (p *PrometheusCollector) RecordRetry(endpoint string) {
	p.retriesTotal.WithLabelValues(p.values(endpoint)...).Inc()
}

// RecordResponseSize records a response body size
func (p *PrometheusCollector) RecordResponseSize(endpoint string, size int) {
	p.responseSize.WithLabelValues(p.values(endpoint)...).Observe(float64(size))
}

// RecordCacheLookup records a cache hit or miss
func (p *PrometheusCollector) RecordCacheLookup(family string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(family, result).Inc()
}

// GetRegistry returns the Prometheus registry
func (p *PrometheusCollector) GetRegistry() *prometheus.Registry {
	return p.registry
}

// MustRegister registers a custom collector
func (p *PrometheusCollector) MustRegister(collectors ...prometheus.Collector) {
	p.registry.MustRegister(collectors...)
}
