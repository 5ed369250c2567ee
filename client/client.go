// Package client is the HTTP client for the jewelcart storefront API. Every call runs through
// the same middleware pipeline: request id, tracing, logging, metrics, session handling,
// default headers, rate limiting, retry and the per-attempt timeout.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jewelcart/storefront"
	"github.com/jewelcart/storefront/middleware"
	"github.com/jewelcart/storefront/pkg/metrics"
)

// Session is what the client needs from the session manager
type Session interface {
	Token(ctx context.Context) (string, bool)
	UserID(ctx context.Context) string
	Expire(ctx context.Context, endpoint string) error
	RequireLogin(ctx context.Context, endpoint string)
}

// Client sends requests to the storefront API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	handler storefront.Handler
}

type options struct {
	httpClient  *http.Client
	session     Session
	logger      *zap.Logger
	collector   metrics.MetricsCollector
	tracing     bool
	tracingOpts []middleware.TracingOption
	rateLimit   float64
	rateBurst   int
	ratePerKey  bool
	retryOpts   []middleware.RetryOption
	timeoutOpts []middleware.TimeoutOption
	authOpts    []middleware.AuthOption
}

// Option configures a Client
type Option func(*options)

// WithHTTPClient sets the underlying HTTP client. Its Timeout should be zero; attempts are
// bounded by the pipeline.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTransport sets the round tripper of the underlying HTTP client
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.httpClient = &http.Client{Transport: rt}
	}
}

// WithSession connects the client to the session: bearer tokens, the 401 teardown and the
// missing-session hook.
func WithSession(s Session) Option {
	return func(o *options) {
		o.session = s
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records request metrics into collector
func WithMetrics(collector metrics.MetricsCollector) Option {
	return func(o *options) {
		o.collector = collector
	}
}

// WithTracing enables a client span per request
func WithTracing(opts ...middleware.TracingOption) Option {
	return func(o *options) {
		o.tracing = true
		o.tracingOpts = opts
	}
}

// WithRateLimit throttles the client to ratePerSec requests per second
func WithRateLimit(ratePerSec float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = ratePerSec
		o.rateBurst = burst
		o.ratePerKey = false
	}
}

// WithRateLimitPerEndpoint throttles each "METHOD /path" to ratePerSec requests per second on its own bucket
func WithRateLimitPerEndpoint(ratePerSec float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = ratePerSec
		o.rateBurst = burst
		o.ratePerKey = true
	}
}

// WithRetryOptions adjusts the retry middleware
func WithRetryOptions(opts ...middleware.RetryOption) Option {
	return func(o *options) {
		o.retryOpts = append(o.retryOpts, opts...)
	}
}

// WithTimeoutOptions adjusts the per-attempt timeout middleware
func WithTimeoutOptions(opts ...middleware.TimeoutOption) Option {
	return func(o *options) {
		o.timeoutOpts = append(o.timeoutOpts, opts...)
	}
}

// WithAuthOptions adjusts the session requirement, e.g. the public endpoint allow-list
func WithAuthOptions(opts ...middleware.AuthOption) Option {
	return func(o *options) {
		o.authOpts = append(o.authOpts, opts...)
	}
}

// New creates a client for the API rooted at baseURL, e.g. "http://localhost:5000/api"
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	o := &options{
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
		rateBurst:  1,
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    o.httpClient,
		logger:  o.logger,
	}
	c.handler = c.pipeline(o).Then(c.send)

	return c, nil
}

func (c *Client) pipeline(o *options) *storefront.Chain {
	tokens := func(ctx context.Context) (string, bool) { return "", false }
	userID := func(ctx context.Context) string { return "" }
	onExpired := func(ctx context.Context, endpoint string) {}
	onMissing := func(ctx context.Context, endpoint string) {}

	if s := o.session; s != nil {
		tokens = s.Token
		userID = s.UserID
		onExpired = func(ctx context.Context, endpoint string) {
			if err := s.Expire(ctx, endpoint); err != nil {
				c.logger.Warn("failed to clear expired session", zap.String("endpoint", endpoint), zap.Error(err))
			}
		}
		onMissing = s.RequireLogin
	}

	chain := storefront.NewChain(middleware.RequestID())

	if o.tracing {
		chain.Append(middleware.Tracing(append([]middleware.TracingOption{middleware.WithSpanUserID(userID)}, o.tracingOpts...)...))
	}

	chain.Append(middleware.Logging(middleware.WithLogger(o.logger), middleware.WithUserID(userID)))

	if o.collector != nil {
		chain.Append(middleware.MetricsMiddleware(o.collector))
	}

	chain.Append(
		middleware.SessionGuard(onExpired),
		middleware.RequireSession(tokens, append([]middleware.AuthOption{middleware.WithOnMissingSession(onMissing)}, o.authOpts...)...),
		middleware.BearerToken(tokens),
		middleware.DefaultHeaders(),
		middleware.Multipart(),
	)

	switch {
	case o.rateLimit <= 0:
	case o.ratePerKey:
		chain.Append(middleware.RateLimitPerEndpoint(o.rateLimit, o.rateBurst, nil))
	default:
		chain.Append(middleware.RateLimit(o.rateLimit, o.rateBurst))
	}

	retryOpts := []middleware.RetryOption{middleware.WithOnRetry(c.onRetry(o.collector))}
	chain.Append(
		middleware.RetryWith(append(retryOpts, o.retryOpts...)...),
		middleware.AttemptTimeout(o.timeoutOpts...),
	)

	return chain
}

func (c *Client) onRetry(collector metrics.MetricsCollector) func(req *storefront.Request, err error, backoff time.Duration) {
	record := func(*storefront.Request, error, time.Duration) {}
	if collector != nil {
		record = middleware.RetryMetrics(collector)
	}

	return func(req *storefront.Request, err error, backoff time.Duration) {
		c.logger.Debug("retrying API request",
			zap.String("endpoint", req.Endpoint()),
			zap.Int("retry", req.RetryCount),
			zap.Duration("backoff", backoff),
			zap.String("error", storefront.Message(err)),
		)
		record(req, err, backoff)
	}
}

// send performs one attempt. Non-2xx statuses come back as *storefront.APIError and failures
// without a response as *storefront.TransportError.
func (c *Client) send(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s: %w", req.Endpoint(), err)
	}
	httpReq.Header = req.Header.Clone()
	if req.Multipart && req.BodyContentType != "" {
		httpReq.Header.Set("Content-Type", req.BodyContentType)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &storefront.TransportError{Endpoint: req.Endpoint(), Timeout: isTimeout(err), Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &storefront.TransportError{Endpoint: req.Endpoint(), Timeout: isTimeout(err), Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, storefront.NewAPIError(httpResp.StatusCode, data)
	}

	return &storefront.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Do sends req through the pipeline and decodes the response envelope
func (c *Client) Do(ctx context.Context, req *storefront.Request) (*Result, error) {
	resp, err := c.handler(ctx, req)
	if err != nil {
		return nil, err
	}
	return decode(resp)
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Result, error) {
	return c.Do(ctx, storefront.NewRequest(http.MethodGet, path, query, nil))
}

// Post sends body as JSON
func (c *Client) Post(ctx context.Context, path string, body any) (*Result, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

// Put sends body as JSON
func (c *Client) Put(ctx context.Context, path string, body any) (*Result, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

// Patch sends body as JSON
func (c *Client) Patch(ctx context.Context, path string, body any) (*Result, error) {
	return c.sendJSON(ctx, http.MethodPatch, path, body)
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*Result, error) {
	return c.Do(ctx, storefront.NewRequest(http.MethodDelete, path, nil, nil))
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any) (*Result, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
	}
	return c.Do(ctx, storefront.NewRequest(method, path, nil, payload))
}
