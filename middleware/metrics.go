package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jewelcart/storefront"
	"github.com/jewelcart/storefront/pkg/metrics"
)

// MetricsMiddleware records one request sample per logical request
func MetricsMiddleware(collector metrics.MetricsCollector) storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		endpoint := req.Endpoint()
		start := time.Now()

		collector.RecordActiveRequests(endpoint, 1)
		defer collector.RecordActiveRequests(endpoint, -1)

		resp, err := next(ctx, req)

		duration := time.Since(start)
		code := "none"
		switch {
		case err == nil:
			code = strconv.Itoa(resp.StatusCode)
			collector.RecordResponseSize(endpoint, len(resp.Body))
		default:
			var apiErr *storefront.APIError
			if errors.As(err, &apiErr) {
				code = strconv.Itoa(apiErr.StatusCode)
			}
			collector.RecordError(endpoint, storefront.Classify(err).String())
		}

		collector.RecordRequest(endpoint, code, duration)

		return resp, err
	}
}

// Metrics creates a metrics middleware with a new Prometheus collector
func Metrics(opts ...metrics.ConfigOption) storefront.Middleware {
	collector, err := metrics.NewPrometheusCollector(opts...)
	if err != nil {
		panic(err) // Should not happen with valid options
	}

	return MetricsMiddleware(collector)
}

// RetryMetrics returns a Retry callback counting retries per endpoint
func RetryMetrics(collector metrics.MetricsCollector) func(req *storefront.Request, err error, backoff time.Duration) {
	return func(req *storefront.Request, err error, backoff time.Duration) {
		collector.RecordRetry(req.Endpoint())
	}
}
