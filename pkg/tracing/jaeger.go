package tracing

import (
	"context"
	"fmt"
	"net"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ProviderOption adjusts NewProvider
type ProviderOption func(*providerOptions)

type providerOptions struct {
	exporter sdktrace.SpanExporter
	global   bool
}

// WithExporter sends spans to exp instead of Jaeger
func WithExporter(exp sdktrace.SpanExporter) ProviderOption {
	return func(o *providerOptions) {
		o.exporter = exp
	}
}

// WithoutGlobal leaves the global tracer provider and propagator untouched
func WithoutGlobal() ProviderOption {
	return func(o *providerOptions) {
		o.global = false
	}
}

// NewProvider builds a tracer provider for config. Spans are exported to the Jaeger agent
// when AgentEndpoint is set and to the collector Endpoint otherwise. Unless WithoutGlobal is
// given, the provider and the W3C propagators the tracing middleware injects are installed
// globally.
func NewProvider(config *Config, opts ...ProviderOption) (*sdktrace.TracerProvider, error) {
	o := &providerOptions{global: true}
	for _, opt := range opts {
		opt(o)
	}

	exporter := o.exporter
	if exporter == nil {
		exp, err := newJaegerExporter(config)
		if err != nil {
			return nil, err
		}
		exporter = exp
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(resourceAttributes(config)...),
		resource.WithHost(),
		resource.WithOS(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(config.SamplingRate)),
	)

	if o.global {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	return tp, nil
}

func newJaegerExporter(config *Config) (*jaeger.Exporter, error) {
	var endpoint jaeger.EndpointOption
	if config.AgentEndpoint != "" {
		host, port, err := net.SplitHostPort(config.AgentEndpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid Jaeger agent endpoint %q: %w", config.AgentEndpoint, err)
		}
		endpoint = jaeger.WithAgentEndpoint(jaeger.WithAgentHost(host), jaeger.WithAgentPort(port))
	} else {
		endpoint = jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.Endpoint))
	}

	exporter, err := jaeger.New(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}
	return exporter, nil
}

// resourceAttributes describes the client; extra attributes come after the standard ones, by key
func resourceAttributes(config *Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		semconv.DeploymentEnvironment(config.Environment),
	}

	keys := make([]string, 0, len(config.Attributes))
	for key := range config.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		attrs = append(attrs, attribute.String(key, config.Attributes[key]))
	}
	return attrs
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Shutdown flushes pending spans and stops the provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
