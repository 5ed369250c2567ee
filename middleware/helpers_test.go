package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jewelcart/storefront"
)

func okHandler(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
	return &storefront.Response{StatusCode: http.StatusOK, Body: []byte(`{"success":true}`)}, nil
}

func statusHandler(status int) storefront.Handler {
	return func(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
		return nil, storefront.NewAPIError(status, nil)
	}
}

func staticTokens(token string) TokenSource {
	return func(ctx context.Context) (string, bool) {
		return token, token != ""
	}
}

// recordingSleeper records backoff durations instead of sleeping
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}
