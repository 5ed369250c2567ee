package storefront

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Order(t *testing.T) {
	var order []string

	record := func(name string) Middleware {
		return func(ctx context.Context, req *Request, next Handler) (*Response, error) {
			order = append(order, name+":before")
			resp, err := next(ctx, req)
			order = append(order, name+":after")
			return resp, err
		}
	}

	chain := NewChain(record("b")).Prepend(record("a")).Append(record("c"))
	assert.Equal(t, 3, chain.Len())

	handler := chain.Then(func(ctx context.Context, req *Request) (*Response, error) {
		order = append(order, "handler")
		return &Response{StatusCode: http.StatusOK}, nil
	})

	resp, err := handler(context.Background(), NewRequest(http.MethodGet, "/products", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{
		"a:before", "b:before", "c:before",
		"handler",
		"c:after", "b:after", "a:after",
	}, order)
}

func TestChain_Empty(t *testing.T) {
	called := false
	handler := NewChain().Then(func(ctx context.Context, req *Request) (*Response, error) {
		called = true
		return &Response{StatusCode: http.StatusNoContent}, nil
	})

	_, err := handler(context.Background(), NewRequest(http.MethodDelete, "/products/1", nil, nil))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRequest_Endpoint(t *testing.T) {
	req := NewRequest(http.MethodPost, "/auth/login", nil, []byte(`{}`))
	assert.Equal(t, "POST /auth/login", req.Endpoint())
	assert.NotNil(t, req.Header)
	assert.Zero(t, req.RetryCount)
}

func TestRequest_Clone(t *testing.T) {
	req := NewRequest(http.MethodGet, "/products", url.Values{"category": {"Ring"}}, nil)
	req.Header.Set("Authorization", "Bearer a")

	clone := req.Clone()
	clone.Header.Set("Authorization", "Bearer b")
	clone.Query.Set("category", "Necklace")
	clone.RetryCount = 2

	assert.Equal(t, "Bearer a", req.Header.Get("Authorization"))
	assert.Equal(t, "Ring", req.Query.Get("category"))
	assert.Zero(t, req.RetryCount)
}
