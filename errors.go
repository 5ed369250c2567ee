package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthenticationRequired is returned when an authenticated endpoint is called without a
	// local session. The request never reaches the network.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrAuthenticationExpired is returned when the server answered 401. The local session and
	// the whole cache have been wiped by the time the caller sees it.
	ErrAuthenticationExpired = errors.New("authentication expired")
)

// ErrorKind classifies failures surfaced by the transport
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthenticationRequired
	KindAuthenticationExpired
	KindTransient
	KindClient
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindAuthenticationExpired:
		return "authentication_expired"
	case KindTransient:
		return "transient"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// TransportError is a failure with no HTTP response at all: connection errors, resets and
// attempt timeouts.
type TransportError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: network error: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response, or a 2xx response whose envelope reports success=false
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, code %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Retryable reports whether the status is a server-side failure
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewAPIError builds an APIError from a response body, preferring the server-supplied message
// and falling back to the HTTP status text.
func NewAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var env Envelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		if apiErr.Message == "" {
			apiErr.Message = env.Message
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	if apiErr.Message == "" {
		apiErr.Message = "request failed"
	}

	return apiErr
}

// ValidationError reports input rejected locally, before any request was sent
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Classify maps an error returned by the pipeline to its kind
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return KindAuthenticationRequired
	case errors.Is(err, ErrAuthenticationExpired):
		return KindAuthenticationExpired
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return KindAuthenticationExpired
		case apiErr.Retryable():
			return KindTransient
		default:
			return KindClient
		}
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return KindTransient
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindClient
	}

	return KindUnknown
}

// IsRetryable reports whether a failed attempt may be retried: either no response was received
// or the server answered with a 5xx status. Cancellation of the caller's context is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return Classify(err) == KindTransient
}

// Message returns the best human readable description of err
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
