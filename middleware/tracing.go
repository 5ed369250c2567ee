package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jewelcart/storefront"
)

// TracerName is the instrumentation name used when no tracer is configured
const TracerName = "github.com/jewelcart/storefront"

// TracingConfig holds configuration for tracing middleware
type TracingConfig struct {
	Tracer       trace.Tracer
	TracerName   string
	Propagator   propagation.TextMapPropagator
	RecordErrors bool
	RecordEvents bool
	UserID       func(ctx context.Context) string
	ExtraAttrs   []attribute.KeyValue
}

// TracingOption is a functional option for tracing configuration
type TracingOption func(*TracingConfig)

// WithTracer sets a custom tracer
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		c.Tracer = tracer
	}
}

// WithTracerName sets the tracer name
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithPropagator sets a custom propagator
func WithPropagator(propagator propagation.TextMapPropagator) TracingOption {
	return func(c *TracingConfig) {
		c.Propagator = propagator
	}
}

// WithoutEvents disables the per-retry span events
func WithoutEvents() TracingOption {
	return func(c *TracingConfig) {
		c.RecordEvents = false
	}
}

// WithSpanUserID sets how the current user id is resolved for the user.id attribute
func WithSpanUserID(fn func(ctx context.Context) string) TracingOption {
	return func(c *TracingConfig) {
		c.UserID = fn
	}
}

// WithExtraAttributes adds extra attributes to all spans
func WithExtraAttributes(attrs ...attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.ExtraAttrs = append(c.ExtraAttrs, attrs...)
	}
}

// Tracing starts a client span per logical request and injects its context into the
// outgoing headers, so every attempt carries the same trace.
func Tracing(opts ...TracingOption) storefront.Middleware {
	config := &TracingConfig{
		TracerName:   TracerName,
		RecordErrors: true,
		RecordEvents: true,
	}

	for _, opt := range opts {
		opt(config)
	}

	if config.Tracer == nil {
		config.Tracer = otel.Tracer(config.TracerName)
	}

	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		ctx, span := config.Tracer.Start(ctx, req.Endpoint(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(config.ExtraAttrs...),
		)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		)
		if config.UserID != nil {
			if userID := config.UserID(ctx); userID != "" {
				span.SetAttributes(attribute.String("user.id", userID))
			}
		}

		propagator := config.Propagator
		if propagator == nil {
			propagator = otel.GetTextMapPropagator()
		}
		propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := next(ctx, req)

		span.SetAttributes(attribute.Int("http.resend_count", req.RetryCount))
		if config.RecordEvents && req.RetryCount > 0 {
			span.AddEvent("retried", trace.WithAttributes(attribute.Int("retries", req.RetryCount)))
		}

		if err != nil {
			kind := storefront.Classify(err)
			span.SetAttributes(attribute.String("error.type", kind.String()))

			var apiErr *storefront.APIError
			if errors.As(err, &apiErr) {
				span.SetAttributes(attribute.Int("http.response.status_code", apiErr.StatusCode))
			}

			span.SetStatus(codes.Error, storefront.Message(err))
			if config.RecordErrors {
				span.RecordError(err)
			}
			return resp, err
		}

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return resp, nil
	}
}

// AddEventToSpan adds an event to the current span
func AddEventToSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
