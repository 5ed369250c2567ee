// Package chaos injects latency, server errors and network failures into outgoing HTTP calls.
// It wraps the client's http.RoundTripper, so everything above it (retry, timeouts, session
// handling) sees the faults exactly as it would see real ones.
package chaos

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrInjectedNetworkError is returned in place of a response when a network failure is injected
var ErrInjectedNetworkError = errors.New("chaos: injected network error")

// ChaosConfig holds configuration for chaos engineering
type ChaosConfig struct {
	// Latency injection
	LatencyEnabled     bool
	LatencyMin         time.Duration
	LatencyMax         time.Duration
	LatencyProbability float64

	// Server error injection
	ErrorEnabled     bool
	StatusCodes      []int
	ErrorProbability float64

	// Network failure injection
	NetworkErrorEnabled     bool
	NetworkErrorProbability float64

	// Only requests whose path ends with one of these are affected (empty = all)
	TargetPaths []string

	// Conditional enabling
	EnableCondition func() bool
}

// ChaosOption is a functional option for chaos configuration
type ChaosOption func(*ChaosConfig)

// WithLatency enables latency injection
func WithLatency(min, max time.Duration, probability float64) ChaosOption {
	return func(c *ChaosConfig) {
		c.LatencyEnabled = true
		c.LatencyMin = min
		c.LatencyMax = max
		c.LatencyProbability = probability
	}
}

// WithErrors enables injection of error responses with the given status codes
func WithErrors(statusCodes []int, probability float64) ChaosOption {
	return func(c *ChaosConfig) {
		c.ErrorEnabled = len(statusCodes) > 0
		c.StatusCodes = statusCodes
		c.ErrorProbability = probability
	}
}

// WithNetworkErrors enables injection of connection failures
func WithNetworkErrors(probability float64) ChaosOption {
	return func(c *ChaosConfig) {
		c.NetworkErrorEnabled = true
		c.NetworkErrorProbability = probability
	}
}

// WithTargetPaths limits chaos to requests whose URL path ends with one of paths
func WithTargetPaths(paths ...string) ChaosOption {
	return func(c *ChaosConfig) {
		c.TargetPaths = paths
	}
}

// WithCondition sets a condition for enabling chaos
func WithCondition(condition func() bool) ChaosOption {
	return func(c *ChaosConfig) {
		c.EnableCondition = condition
	}
}

// Transport is an http.RoundTripper that injects faults before delegating to Next
type Transport struct {
	Next   http.RoundTripper
	config *ChaosConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// New wraps next (http.DefaultTransport when nil) with fault injection
func New(next http.RoundTripper, opts ...ChaosOption) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}

	config := &ChaosConfig{
		EnableCondition: func() bool { return true },
	}

	for _, opt := range opts {
		opt(config)
	}

	return &Transport{
		Next:   next,
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed makes the injected faults reproducible
func (t *Transport) WithSeed(seed int64) *Transport {
	t.mu.Lock()
	t.rng = rand.New(rand.NewSource(seed))
	t.mu.Unlock()
	return t
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.targets(req) || (t.config.EnableCondition != nil && !t.config.EnableCondition()) {
		return t.Next.RoundTrip(req)
	}

	if t.config.LatencyEnabled && t.shouldInject(t.config.LatencyProbability) {
		delay := t.randomDuration(t.config.LatencyMin, t.config.LatencyMax)

		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			closeBody(req)
			return nil, fmt.Errorf("request canceled during chaos latency injection: %w", req.Context().Err())
		}
	}

	if t.config.NetworkErrorEnabled && t.shouldInject(t.config.NetworkErrorProbability) {
		closeBody(req)
		return nil, ErrInjectedNetworkError
	}

	if t.config.ErrorEnabled && t.shouldInject(t.config.ErrorProbability) {
		closeBody(req)
		return injectedResponse(req, t.pick(t.config.StatusCodes)), nil
	}

	return t.Next.RoundTrip(req)
}

func (t *Transport) targets(req *http.Request) bool {
	if len(t.config.TargetPaths) == 0 {
		return true
	}
	for _, p := range t.config.TargetPaths {
		if strings.HasSuffix(req.URL.Path, p) {
			return true
		}
	}
	return false
}

// shouldInject determines if chaos should be injected based on probability
func (t *Transport) shouldInject(probability float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rng.Float64() < probability
}

// randomDuration returns a random duration between min and max
func (t *Transport) randomDuration(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return min + time.Duration(t.rng.Int63n(int64(max-min)))
}

func (t *Transport) pick(statusCodes []int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return statusCodes[t.rng.Intn(len(statusCodes))]
}

func injectedResponse(req *http.Request, status int) *http.Response {
	body := fmt.Sprintf(`{"success":false,"error":{"code":"CHAOS","message":"chaos: injected %d"}}`, status)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"application/json"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// Presets for common chaos scenarios

// HighLatencyChaos simulates a slow network
func HighLatencyChaos(next http.RoundTripper, probability float64) *Transport {
	return New(next, WithLatency(500*time.Millisecond, 2*time.Second, probability))
}

// FlakyChaos simulates a flaky backend: some latency, some 5xx, some dropped connections
func FlakyChaos(next http.RoundTripper, probability float64) *Transport {
	return New(next,
		WithLatency(50*time.Millisecond, 500*time.Millisecond, probability),
		WithErrors([]int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable}, probability/2),
		WithNetworkErrors(probability/4),
	)
}

// PartitionChaos simulates a network partition
func PartitionChaos(next http.RoundTripper, probability float64) *Transport {
	return New(next, WithNetworkErrors(probability))
}

// OverloadedChaos simulates an overloaded backend
func OverloadedChaos(next http.RoundTripper, probability float64) *Transport {
	return New(next,
		WithLatency(1*time.Second, 5*time.Second, probability),
		WithErrors([]int{http.StatusServiceUnavailable, http.StatusGatewayTimeout}, probability/2),
	)
}
