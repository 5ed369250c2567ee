package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/middleware"
	"github.com/jewelcart/storefront/pkg/cache"
	"github.com/jewelcart/storefront/pkg/session"
	"github.com/jewelcart/storefront/pkg/storage"
)

// backend is a fake storefront API counting hits per "METHOD path"
type backend struct {
	mux *http.ServeMux

	mu   sync.Mutex
	hits map[string]int
}

func newBackend() *backend {
	return &backend{mux: http.NewServeMux(), hits: make(map[string]int)}
}

func (b *backend) handle(pattern string, status int, body string) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	})
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.hits[r.Method+" "+r.URL.Path]++
	b.mu.Unlock()
	b.mux.ServeHTTP(w, r)
}

func (b *backend) Hits(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

func (b *backend) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.hits {
		n += v
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type env struct {
	backend *backend
	cache   *cache.MemoryStore
	session *session.Manager
	client  *client.Client
}

// newEnv returns an environment with a logged in admin
func newEnv(t *testing.T) *env {
	t.Helper()

	e := newAnonymousEnv(t)
	require.NoError(t, e.session.Begin(context.Background(), "tok-123", session.User{ID: "u1", Role: "admin"}))
	return e
}

func newAnonymousEnv(t *testing.T) *env {
	t.Helper()

	e := &env{backend: newBackend(), cache: cache.NewMemoryStore(nil)}
	server := httptest.NewServer(e.backend)
	t.Cleanup(server.Close)

	e.session = session.NewManager(storage.NewMemoryStorage(), e.cache)

	c, err := client.New(server.URL+"/api",
		client.WithSession(e.session),
		client.WithRetryOptions(middleware.WithSleeper(func(context.Context, time.Duration) error { return nil })),
	)
	require.NoError(t, err)
	e.client = c

	return e
}

// countingRecorder counts cache lookups per family
type countingRecorder struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{hits: map[string]int{}, misses: map[string]int{}}
}

func (r *countingRecorder) RecordCacheLookup(family string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits[family]++
	} else {
		r.misses[family]++
	}
}
