// Package service implements the storefront API services. Reads go through a TTL cache keyed
// by operation and canonical parameters; writes bypass the cache and invalidate it afterwards.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jewelcart/storefront"
	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/middleware"
	"github.com/jewelcart/storefront/pkg/cache"
)

// API is the transport the services call
type API interface {
	Get(ctx context.Context, path string, query url.Values) (*client.Result, error)
	Post(ctx context.Context, path string, body any) (*client.Result, error)
	Put(ctx context.Context, path string, body any) (*client.Result, error)
	Patch(ctx context.Context, path string, body any) (*client.Result, error)
	Delete(ctx context.Context, path string) (*client.Result, error)
	Upload(ctx context.Context, path string, files []client.File, fields map[string]string) (*client.Result, error)
}

// CacheLookupRecorder receives one sample per cache lookup
type CacheLookupRecorder interface {
	RecordCacheLookup(family string, hit bool)
}

// Option configures a service
type Option func(*readThrough)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *readThrough) {
		r.logger = logger
	}
}

// WithMetrics records cache hits and misses
func WithMetrics(recorder CacheLookupRecorder) Option {
	return func(r *readThrough) {
		r.recorder = recorder
	}
}

// WithKeyGenerator replaces the cache key generator
func WithKeyGenerator(keys cache.KeyGenerator) Option {
	return func(r *readThrough) {
		r.keys = keys
	}
}

// WithCoalescing makes concurrent misses for the same key share one request. Off by default:
// without it, identical concurrent reads each reach the network and the last write wins.
func WithCoalescing() Option {
	return func(r *readThrough) {
		r.group = &singleflight.Group{}
	}
}

// cachedPayload is what a cache entry holds: the envelope data and, for lists, the pagination
type cachedPayload struct {
	Data       json.RawMessage        `json:"data"`
	Pagination *storefront.Pagination `json:"pagination,omitempty"`
}

type readThrough struct {
	api      API
	store    cache.Store
	keys     cache.KeyGenerator
	logger   *zap.Logger
	recorder CacheLookupRecorder
	group    *singleflight.Group
}

func newReadThrough(api API, store cache.Store, opts ...Option) *readThrough {
	if store == nil {
		store = cache.NoopStore{}
	}

	r := &readThrough{
		api:    api,
		store:  store,
		keys:   cache.NewDefaultKeyGenerator(),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// fetchCached returns the cached value of key, or loads it, caches it for
// storefront.DefaultCacheTTL and returns it. Load errors are returned unchanged and nothing is
// cached. Both paths decode from the stored bytes, so a hit is identical to the fetch that
// populated it.
func fetchCached[T any](ctx context.Context, r *readThrough, family, key string, load func(ctx context.Context) (*client.Result, error)) (T, *storefront.Pagination, error) {
	var zero T

	if raw, ok := r.store.Get(key); ok {
		value, pagination, err := decodePayload[T](raw)
		if err == nil {
			r.lookup(ctx, family, key, true)
			return value, pagination, nil
		}
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		r.store.Clear(key)
	}
	r.lookup(ctx, family, key, false)

	raw, err := r.load(ctx, key, load)
	if err != nil {
		return zero, nil, err
	}

	return decodePayload[T](raw)
}

func (r *readThrough) load(ctx context.Context, key string, load func(ctx context.Context) (*client.Result, error)) ([]byte, error) {
	fetch := func() (interface{}, error) {
		res, err := load(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(cachedPayload{Data: res.Data, Pagination: res.Pagination})
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s for the cache: %w", key, err)
		}
		r.store.Set(key, raw, storefront.DefaultCacheTTL)
		return raw, nil
	}

	if r.group == nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	}

	v, err, shared := r.group.Do(key, fetch)
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("shared in-flight read", zap.String("key", key))
	}
	return v.([]byte), nil
}

func (r *readThrough) lookup(ctx context.Context, family, key string, hit bool) {
	if r.recorder != nil {
		r.recorder.RecordCacheLookup(family, hit)
	}
	if hit {
		middleware.AddEventToSpan(ctx, "cache.hit", attribute.String("cache.key", key))
	}
}

func decodePayload[T any](raw []byte) (T, *storefront.Pagination, error) {
	var payload cachedPayload
	var value T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return value, nil, fmt.Errorf("failed to decode cached payload: %w", err)
	}
	if len(payload.Data) > 0 && string(payload.Data) != "null" {
		if err := json.Unmarshal(payload.Data, &value); err != nil {
			return value, nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return value, payload.Pagination, nil
}

// invalidateAll empties the whole cache after a write
func (r *readThrough) invalidateAll(reason string) {
	r.store.ClearAll()
	r.logger.Debug("cache flushed", zap.String("reason", reason))
}

// invalidatePrefix drops one resource family, or everything when the store cannot clear by prefix
func (r *readThrough) invalidatePrefix(prefix, reason string) {
	pc, ok := r.store.(cache.PrefixClearer)
	if !ok {
		r.invalidateAll(reason)
		return
	}
	n := pc.ClearPrefix(prefix)
	r.logger.Debug("cache family cleared", zap.String("prefix", prefix), zap.Int("entries", n), zap.String("reason", reason))
}

func validate(op string, v interface{ Validate() error }) error {
	if err := v.Validate(); err != nil {
		return &storefront.ValidationError{Op: op, Err: err}
	}
	return nil
}

func requireID(op, name, id string) error {
	if id == "" {
		return validationErr(op, name, "cannot be blank")
	}
	return nil
}

func validationErr(op, field, msg string) error {
	return &storefront.ValidationError{Op: op, Err: validation.Errors{field: errors.New(msg)}}
}

func decodeResult[T any](res *client.Result) (T, error) {
	var v T
	if res == nil {
		return v, nil
	}
	err := res.Decode(&v)
	return v, err
}
