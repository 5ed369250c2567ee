package middleware

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/jewelcart/storefront"
)

func TestRetry_Success(t *testing.T) {
	sleeper := &recordingSleeper{}
	retry := RetryWith(WithSleeper(sleeper.Sleep))

	attempts := 0
	handler := func(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
		attempts++
		return okHandler(ctx, req)
	}

	req := storefront.NewRequest(http.MethodGet, "/products", nil, nil)
	resp, err := retry(context.Background(), req, handler)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
	if resp.Attempts != 1 {
		t.Errorf("Expected response to report 1 attempt, got %d", resp.Attempts)
	}
	if got := req.Header.Get(storefront.RetryCountHeader); got != "0" {
		t.Errorf("Expected retry marker 0, got %q", got)
	}
	if len(sleeper.Durations()) != 0 {
		t.Errorf("Expected no backoff, got %v", sleeper.Durations())
	}
}

func TestRetry_ServerErrorExhaustsBudget(t *testing.T) {
	sleeper := &recordingSleeper{}
	retry := RetryWith(WithSleeper(sleeper.Sleep))

	var markers []string
	attempts := 0
	handler := func(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
		attempts++
		markers = append(markers, req.Header.Get(storefront.RetryCountHeader))
		return nil, storefront.NewAPIError(http.StatusInternalServerError, nil)
	}

	req := storefront.NewRequest(http.MethodGet, "/analytics/dashboard", nil, nil)
	_, err := retry(context.Background(), req, handler)

	var apiErr *storefront.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500 APIError, got %v", err)
	}

	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts)
	}
	if req.RetryCount != storefront.MaxRetries {
		t.Errorf("Expected RetryCount %d, got %d", storefront.MaxRetries, req.RetryCount)
	}
	if want := []string{"0", "1", "2", "3"}; !reflect.DeepEqual(markers, want) {
		t.Errorf("Expected retry markers %v, got %v", want, markers)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}
	if got := sleeper.Durations(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected backoff %v, got %v", want, got)
	}
}

func TestRetry_ClientErrorIsFinal(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		sleeper := &recordingSleeper{}
		retry := RetryWith(WithSleeper(sleeper.Sleep))

		attempts := 0
		handler := func(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
			attempts++
			return statusHandler(status)(ctx, req)
		}

		_, err := retry(context.Background(), storefront.NewRequest(http.MethodGet, "/products/x", nil, nil), handler)
		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		if attempts != 1 {
			t.Errorf("status %d: expected 1 attempt, got %d", status, attempts)
		}
		if len(sleeper.Durations()) != 0 {
			t.Errorf("status %d: expected no backoff", status)
		}
	}
}

func TestRetry_TransportErrorRecovers(t *testing.T) {
	sleeper := &recordingSleeper{}
	var retried []int
	retry := RetryWith(
		WithSleeper(sleeper.Sleep),
		WithOnRetry(func(req *storefront.Request, err error, backoff time.Duration) {
			retried = append(retried, req.RetryCount)
		}),
	)

	attempts := 0
	var bodies []string
	handler := func(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
		attempts++
		bodies = append(bodies, string(req.Body))
		if attempts < 3 {
			return nil, &storefront.TransportError{Endpoint: req.Endpoint(), Err: errors.New("connection reset")}
		}
		return okHandler(ctx, req)
	}

	req := storefront.NewRequest(http.MethodPost, "/khata/customers", nil, []byte(`{"name":"Ravi"}`))
	resp, err := retry(context.Background(), req, handler)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if resp.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", resp.Attempts)
	}
	if !reflect.DeepEqual(retried, []int{1, 2}) {
		t.Errorf("Expected retries [1 2], got %v", retried)
	}
	for _, b := range bodies {
		if b != `{"name":"Ravi"}` {
			t.Errorf("Expected identical payload on every attempt, got %q", b)
		}
	}
}

func TestRetry_CustomPolicy(t *testing.T) {
	sleeper := &recordingSleeper{}
	retry := RetryWith(
		WithSleeper(sleeper.Sleep),
		WithMaxRetries(1),
		WithBackoff(func(retry int) time.Duration { return 5 * time.Millisecond }),
	)

	attempts := 0
	handler := func(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
		attempts++
		return statusHandler(http.StatusBadGateway)(ctx, req)
	}

	_, _ = retry(context.Background(), storefront.NewRequest(http.MethodGet, "/prices/current", nil, nil), handler)
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if got := sleeper.Durations(); !reflect.DeepEqual(got, []time.Duration{5 * time.Millisecond}) {
		t.Errorf("Expected one 5ms backoff, got %v", got)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	retry := RetryWith(WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	attempts := 0
	handler := func(ctx context.Context, req *storefront.Request) (*storefront.Response, error) {
		attempts++
		return statusHandler(http.StatusServiceUnavailable)(ctx, req)
	}

	_, err := retry(ctx, storefront.NewRequest(http.MethodGet, "/products", nil, nil), handler)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := LinearBackoff(storefront.RetryDelayBase)
	for retry, want := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 3 * time.Second} {
		if got := backoff(retry); got != want {
			t.Errorf("retry %d: expected %v, got %v", retry, want, got)
		}
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
