package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/jewelcart/storefront"
)

// TimeoutConfig holds configuration for timeout middleware
type TimeoutConfig struct {
	Timeout     time.Duration
	OnTimeout   func(endpoint string, duration time.Duration)
	PerEndpoint map[string]time.Duration
}

// TimeoutOption is a functional option for timeout configuration
type TimeoutOption func(*TimeoutConfig)

// WithTimeout sets the per-attempt timeout
func WithTimeout(timeout time.Duration) TimeoutOption {
	return func(c *TimeoutConfig) {
		c.Timeout = timeout
	}
}

// WithTimeoutCallback sets a callback function when timeout occurs
func WithTimeoutCallback(callback func(endpoint string, duration time.Duration)) TimeoutOption {
	return func(c *TimeoutConfig) {
		c.OnTimeout = callback
	}
}

// WithPerEndpointTimeout sets endpoint-specific timeouts, keyed by "METHOD /path"
func WithPerEndpointTimeout(timeouts map[string]time.Duration) TimeoutOption {
	return func(c *TimeoutConfig) {
		c.PerEndpoint = timeouts
	}
}

// AttemptTimeout bounds every single attempt. It sits inside Retry, so an expired attempt
// surfaces as a retryable TransportError rather than ending the whole request.
// Default timeout is 10 seconds if not specified.
func AttemptTimeout(opts ...TimeoutOption) storefront.Middleware {
	config := &TimeoutConfig{
		Timeout:     storefront.AttemptTimeout,
		PerEndpoint: make(map[string]time.Duration),
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		timeout := config.Timeout
		if endpointTimeout, ok := config.PerEndpoint[req.Endpoint()]; ok {
			timeout = endpointTimeout
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			resp *storefront.Response
			err  error
		}
		resultChan := make(chan result, 1)

		// The attempt works on its own copy so an abandoned attempt never races the next one
		attempt := req.Clone()
		go func() {
			resp, err := next(attemptCtx, attempt)
			resultChan <- result{resp: resp, err: err}
		}()

		select {
		case res := <-resultChan:
			return res.resp, res.err
		case <-attemptCtx.Done():
			// The caller gave up; that is not an attempt timeout
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if config.OnTimeout != nil {
				config.OnTimeout(req.Endpoint(), timeout)
			}
			return nil, &storefront.TransportError{
				Endpoint: req.Endpoint(),
				Timeout:  true,
				Err:      fmt.Errorf("attempt timeout after %v: %w", timeout, context.DeadlineExceeded),
			}
		}
	}
}
