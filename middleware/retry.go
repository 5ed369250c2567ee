package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/jewelcart/storefront"
)

// RetryPolicy decides how many times a request is retried and how long to wait before each retry
type RetryPolicy struct {
	MaxRetries int
	Backoff    func(retry int) time.Duration
}

// LinearBackoff waits base*retry before retry number retry (1-based)
func LinearBackoff(base time.Duration) func(retry int) time.Duration {
	return func(retry int) time.Duration {
		return base * time.Duration(retry)
	}
}

// DefaultRetryPolicy retries up to 3 times after 1s, 2s and 3s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: storefront.MaxRetries,
		Backoff:    LinearBackoff(storefront.RetryDelayBase),
	}
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext waits for the backoff duration or context cancellation
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry resubmits failed attempts whose failure is retryable: no response at all, an attempt
// timeout, or a 5xx status. Every other outcome is returned as is.
type Retry struct {
	policy    RetryPolicy
	sleep     Sleeper
	retryable func(err error) bool
	onRetry   func(req *storefront.Request, err error, backoff time.Duration)
}

// RetryOption configures a Retry middleware
type RetryOption func(*Retry)

// WithRetryPolicy replaces the whole policy
func WithRetryPolicy(policy RetryPolicy) RetryOption {
	return func(r *Retry) {
		r.policy = policy
	}
}

// WithMaxRetries sets the retry budget
// Default: 3
func WithMaxRetries(n int) RetryOption {
	return func(r *Retry) {
		if n >= 0 {
			r.policy.MaxRetries = n
		}
	}
}

// WithBackoff sets the backoff function
// Default: linear, 1s per retry
func WithBackoff(backoff func(retry int) time.Duration) RetryOption {
	return func(r *Retry) {
		if backoff != nil {
			r.policy.Backoff = backoff
		}
	}
}

// WithSleeper replaces the wait between attempts, for fake clocks in tests
func WithSleeper(sleep Sleeper) RetryOption {
	return func(r *Retry) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithRetryable overrides which errors are retried
// Default: storefront.IsRetryable
func WithRetryable(fn func(err error) bool) RetryOption {
	return func(r *Retry) {
		if fn != nil {
			r.retryable = fn
		}
	}
}

// WithOnRetry sets a callback called before each retry, after RetryCount was incremented
func WithOnRetry(callback func(req *storefront.Request, err error, backoff time.Duration)) RetryOption {
	return func(r *Retry) {
		r.onRetry = callback
	}
}

// NewRetry creates a new Retry middleware with the default policy
func NewRetry(opts ...RetryOption) *Retry {
	r := &Retry{
		policy:    DefaultRetryPolicy(),
		sleep:     sleepContext,
		retryable: storefront.IsRetryable,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Middleware returns the retry loop. Attempts are strictly sequential and resubmit the same
// request, so the body must be replayable.
func (r *Retry) Middleware() storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		req.RetryCount = 0
		req.Header.Set(storefront.RetryCountHeader, "0")

		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			resp, err := next(ctx, req)
			if err == nil {
				if resp != nil {
					resp.Attempts = req.RetryCount + 1
				}
				return resp, nil
			}

			if !r.retryable(err) || req.RetryCount >= r.policy.MaxRetries {
				return resp, err
			}

			req.RetryCount++
			req.Header.Set(storefront.RetryCountHeader, strconv.Itoa(req.RetryCount))

			backoff := r.policy.Backoff(req.RetryCount)

			if r.onRetry != nil {
				r.onRetry(req, err, backoff)
			}

			if err := r.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
}

// RetryWith is shorthand for NewRetry(opts...).Middleware()
func RetryWith(opts ...RetryOption) storefront.Middleware {
	return NewRetry(opts...).Middleware()
}
