package middleware

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/jewelcart/storefront"
)

// RateLimiter interface for rate limiting implementations
type RateLimiter interface {
	Allow() bool
	Wait(ctx context.Context) error
}

// RateLimit throttles outgoing requests with a single token bucket.
// Requests wait for a token instead of failing; only a done context ends the wait.
func RateLimit(ratePerSec float64, burst int) storefront.Middleware {
	return RateLimitWith(rate.NewLimiter(rate.Limit(ratePerSec), burst))
}

// RateLimitWith throttles outgoing requests with the given limiter
func RateLimitWith(limiter RateLimiter) storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed for %s: %w", req.Endpoint(), err)
		}

		return next(ctx, req)
	}
}

// PerKeyRateLimiter manages one token bucket per key
type PerKeyRateLimiter struct {
	limiters *xsync.MapOf[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewPerKeyRateLimiter creates a new per-key rate limiter
func NewPerKeyRateLimiter(ratePerSec float64, burst int) *PerKeyRateLimiter {
	return &PerKeyRateLimiter{
		limiters: xsync.NewMapOf[string, *rate.Limiter](),
		rate:     rate.Limit(ratePerSec),
		burst:    burst,
	}
}

// GetLimiter returns the limiter for key, creating it on first use
func (p *PerKeyRateLimiter) GetLimiter(key string) *rate.Limiter {
	limiter, _ := p.limiters.LoadOrCompute(key, func() *rate.Limiter {
		return rate.NewLimiter(p.rate, p.burst)
	})
	return limiter
}

// Len returns the number of keys seen so far
func (p *PerKeyRateLimiter) Len() int {
	return p.limiters.Size()
}

// RateLimitPerEndpoint throttles each endpoint independently. keyFunc defaults to the
// request's "METHOD /path".
func RateLimitPerEndpoint(ratePerSec float64, burst int, keyFunc func(*storefront.Request) string) storefront.Middleware {
	limiters := NewPerKeyRateLimiter(ratePerSec, burst)
	if keyFunc == nil {
		keyFunc = func(req *storefront.Request) string { return req.Endpoint() }
	}

	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		if err := limiters.GetLimiter(keyFunc(req)).Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed for %s: %w", req.Endpoint(), err)
		}

		return next(ctx, req)
	}
}
