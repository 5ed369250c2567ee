package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/jewelcart/storefront"
)

// PublicEndpoints may be called without a session
var PublicEndpoints = []string{
	"POST /auth/login",
	"POST /auth/signup",
	"GET /products",
	"GET /prices/current",
}

// TokenSource returns the locally stored bearer token, if any
type TokenSource func(ctx context.Context) (string, bool)

// AllowList is a set of "METHOD /path" endpoints. Paths match exactly.
type AllowList map[string]struct{}

// NewAllowList creates an allow-list from endpoints
func NewAllowList(endpoints ...string) AllowList {
	a := make(AllowList, len(endpoints))
	for _, e := range endpoints {
		a[e] = struct{}{}
	}
	return a
}

// Allows reports whether req may be sent without a session
func (a AllowList) Allows(req *storefront.Request) bool {
	_, ok := a[req.Endpoint()]
	return ok
}

// AuthConfig holds configuration for RequireSession
type AuthConfig struct {
	Public    AllowList
	OnMissing func(ctx context.Context, endpoint string)
}

// AuthOption is a functional option for auth configuration
type AuthOption func(*AuthConfig)

// WithPublicEndpoints replaces the default allow-list
func WithPublicEndpoints(endpoints ...string) AuthOption {
	return func(c *AuthConfig) {
		c.Public = NewAllowList(endpoints...)
	}
}

// WithOnMissingSession sets the hook run when a protected call is rejected locally
func WithOnMissingSession(fn func(ctx context.Context, endpoint string)) AuthOption {
	return func(c *AuthConfig) {
		c.OnMissing = fn
	}
}

// RequireSession rejects calls to protected endpoints with ErrAuthenticationRequired when no
// token is stored. Rejected calls never reach the network.
func RequireSession(tokens TokenSource, opts ...AuthOption) storefront.Middleware {
	config := &AuthConfig{
		Public: NewAllowList(PublicEndpoints...),
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		if config.Public.Allows(req) {
			return next(ctx, req)
		}

		if _, ok := tokens(ctx); !ok {
			if config.OnMissing != nil {
				config.OnMissing(ctx, req.Endpoint())
			}
			return nil, fmt.Errorf("%s: %w", req.Endpoint(), storefront.ErrAuthenticationRequired)
		}

		return next(ctx, req)
	}
}

// BearerToken attaches "Authorization: Bearer <token>" whenever a token is stored,
// public endpoints included.
func BearerToken(tokens TokenSource) storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		token, ok := tokens(ctx)
		if !ok {
			req.Header.Del("Authorization")
			return next(ctx, req)
		}

		tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
		tok.SetAuthHeader(&http.Request{Header: req.Header})

		return next(ctx, req)
	}
}

// SessionGuard runs onExpired when the server answers 401 and returns ErrAuthenticationExpired.
// It must sit outside Retry: a 401 is final.
func SessionGuard(onExpired func(ctx context.Context, endpoint string)) storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		resp, err := next(ctx, req)

		var apiErr *storefront.APIError
		if err != nil && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			if onExpired != nil {
				onExpired(ctx, req.Endpoint())
			}
			return nil, fmt.Errorf("%w: %w", storefront.ErrAuthenticationExpired, apiErr)
		}

		return resp, err
	}
}
