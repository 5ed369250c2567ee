package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcart/storefront"
)

func TestRateLimit_WaitsForToken(t *testing.T) {
	mw := RateLimit(20, 1)
	req := storefront.NewRequest(http.MethodGet, "/products", nil, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := mw(context.Background(), req, okHandler)
		require.NoError(t, err)
	}

	// burst 1 at 20/s: the 2nd and 3rd call wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimit_ContextDone(t *testing.T) {
	mw := RateLimit(0.001, 1)
	req := storefront.NewRequest(http.MethodGet, "/products", nil, nil)

	_, err := mw(context.Background(), req, okHandler)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = mw(ctx, req, okHandler)
	assert.Error(t, err)
}

func TestRateLimitPerEndpoint(t *testing.T) {
	limiters := NewPerKeyRateLimiter(1, 1)
	assert.Same(t, limiters.GetLimiter("GET /products"), limiters.GetLimiter("GET /products"))
	assert.NotSame(t, limiters.GetLimiter("GET /products"), limiters.GetLimiter("GET /prices/current"))
	assert.Equal(t, 2, limiters.Len())

	mw := RateLimitPerEndpoint(0.001, 1, nil)

	// Each endpoint has its own burst
	for _, path := range []string{"/products", "/prices/current"} {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := mw(ctx, storefront.NewRequest(http.MethodGet, path, nil, nil), okHandler)
		cancel()
		require.NoError(t, err, path)
	}
}
