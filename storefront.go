// Package storefront provides the request pipeline shared by the jewelcart storefront API client
package storefront

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Fixed transport and cache policy. These are deliberately not configurable.
const (
	// DefaultCacheTTL is the lifetime of every cached read
	DefaultCacheTTL = 5 * time.Minute

	// MaxRetries is the retry budget of a single logical request (4 attempts in total)
	MaxRetries = 3

	// RetryDelayBase is multiplied by the retry number to get the backoff delay
	RetryDelayBase = 1000 * time.Millisecond

	// AttemptTimeout bounds every individual attempt
	AttemptTimeout = 10 * time.Second
)

// Header names set by the pipeline
const (
	RetryCountHeader = "X-Retry-Count"
	RequestIDHeader  = "X-Request-ID"
)

// Request is the outbound call as seen by the middleware pipeline.
// It is owned by a single logical request and never shared between calls.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	// Body is kept as bytes so that retries resubmit the identical payload
	Body []byte

	// Multipart marks binary uploads; BodyContentType carries the boundary-bearing content type
	Multipart       bool
	BodyContentType string

	// RetryCount starts at 0 and is incremented before every retry
	RetryCount int
}

// NewRequest creates a request with initialized headers
func NewRequest(method, path string, query url.Values, body []byte) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Query:  query,
		Header: make(http.Header),
		Body:   body,
	}
}

// Clone returns a copy whose headers and query can be changed without affecting r.
// The body is shared and must not be modified.
func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// Endpoint returns "METHOD /path", used for allow-lists, logs and metric labels
func (r *Request) Endpoint() string {
	return r.Method + " " + r.Path
}

// Response is a completed HTTP exchange
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Attempts is the number of attempts it took to obtain this response
	Attempts int
}

// Handler performs a request
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps a Handler. It may transform the request, the response or the error.
type Middleware func(ctx context.Context, req *Request, next Handler) (*Response, error)

// Chain represents an ordered chain of middleware
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Append adds middleware to the end of the chain
func (c *Chain) Append(middlewares ...Middleware) *Chain {
	c.middlewares = append(c.middlewares, middlewares...)
	return c
}

// Prepend adds middleware to the beginning of the chain
func (c *Chain) Prepend(middlewares ...Middleware) *Chain {
	c.middlewares = append(middlewares, c.middlewares...)
	return c
}

// Len returns the number of middleware in the chain
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Then returns a Handler that runs the chain in order and finally calls handler.
// The first middleware in the chain is the outermost one.
func (c *Chain) Then(handler Handler) Handler {
	currentHandler := handler

	// Apply middleware in reverse order so they execute in the correct order
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		middleware := c.middlewares[i]
		next := currentHandler

		currentHandler = func(ctx context.Context, req *Request) (*Response, error) {
			return middleware(ctx, req, next)
		}
	}

	return currentHandler
}
