package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/jewelcart/storefront"
)

type requestIDKey struct{}

// RequestIDFromContext returns the id RequestID assigned to the current request
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// RequestID gives every logical request an X-Request-ID, shared by all of its attempts
func RequestID() storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		id := req.Header.Get(storefront.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			req.Header.Set(storefront.RequestIDHeader, id)
		}

		return next(context.WithValue(ctx, requestIDKey{}, id), req)
	}
}

// DefaultHeaders sets the JSON Accept and Content-Type headers unless already present
func DefaultHeaders() storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		return next(ctx, req)
	}
}

// Multipart removes any Content-Type from multipart requests; the transport then sends the
// boundary-bearing type of the encoded body.
func Multipart() storefront.Middleware {
	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		if req.Multipart {
			req.Header.Del("Content-Type")
		}

		return next(ctx, req)
	}
}
