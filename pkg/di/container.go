// Package di wires the storefront components from a configuration
package di

import (
	"context"
	"errors"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/config"
	"github.com/jewelcart/storefront/pkg/cache"
	"github.com/jewelcart/storefront/pkg/metrics"
	"github.com/jewelcart/storefront/pkg/session"
	"github.com/jewelcart/storefront/pkg/storage"
	"github.com/jewelcart/storefront/pkg/tracing"
	"github.com/jewelcart/storefront/service"
)

// Container owns one storefront client and the services built on it.
// The cache, the session and every service share a single cache store.
type Container struct {
	config   *config.Config
	logger   *zap.Logger
	storage  storage.Storage
	cache    cache.Store
	session  *session.Manager
	metrics  *metrics.PrometheusCollector
	provider *sdktrace.TracerProvider
	client   *client.Client

	Products  *service.ProductService
	Auth      *service.AuthService
	Prices    *service.PriceService
	Analytics *service.AnalyticsService
	Khata     *service.KhataService

	closers []func(context.Context) error
}

// Option customizes the container before it is built
type Option func(*settings)

type settings struct {
	logger        *zap.Logger
	clientOptions []client.Option
	serviceOpts   []service.Option
	navigator     session.Navigator
}

// WithLogger replaces the logger built from the configuration
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithClientOptions appends client options, e.g. a chaos transport
func WithClientOptions(opts ...client.Option) Option {
	return func(s *settings) {
		s.clientOptions = append(s.clientOptions, opts...)
	}
}

// WithServiceOptions appends options given to every service
func WithServiceOptions(opts ...service.Option) Option {
	return func(s *settings) {
		s.serviceOpts = append(s.serviceOpts, opts...)
	}
}

// WithNavigator redirects to the login screen when the session expires
func WithNavigator(nav session.Navigator) Option {
	return func(s *settings) {
		s.navigator = nav
	}
}

// NewContainer builds every component in dependency order:
// storage, cache, session, metrics, tracing, client, services.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	c := &Container{config: cfg, logger: s.logger}
	if c.logger == nil {
		logger, err := cfg.NewLogger()
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}

	if err := c.build(ctx, s); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	c.logger.Info("storefront container ready",
		zap.String("api_url", cfg.APIURL),
		zap.String("cache", cfg.CacheBackend),
		zap.Bool("durable_session", cfg.StoragePath != ""),
		zap.Bool("tracing", c.provider != nil))
	return c, nil
}

// NewContainerWithDefaults builds a container from the environment
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, cfg, opts...)
}

func (c *Container) build(ctx context.Context, s *settings) error {
	cfg := c.config

	if cfg.StoragePath != "" {
		store, err := storage.OpenSQLite(ctx, cfg.StoragePath)
		if err != nil {
			return err
		}
		c.storage = store
		c.closers = append(c.closers, func(context.Context) error { return store.Close() })
	} else {
		c.storage = storage.NewMemoryStorage()
	}

	switch cfg.CacheBackend {
	case config.CacheSturdyc:
		store, err := cache.NewSturdycStore(cache.DefaultSturdycConfig())
		if err != nil {
			return err
		}
		c.cache = store
	default:
		c.cache = cache.NewMemoryStore(nil)
	}

	c.session = session.NewManager(c.storage, c.cache, session.WithLogger(c.logger.Named("session")))
	if s.navigator != nil {
		c.session.Subscribe(session.RedirectToLogin(s.navigator, session.DefaultLoginPath))
	}

	collector, err := metrics.NewPrometheusCollector(metrics.WithNamespace(cfg.MetricsNamespace))
	if err != nil {
		return fmt.Errorf("failed to create metrics collector: %w", err)
	}
	c.metrics = collector

	clientOpts := []client.Option{
		client.WithSession(c.session),
		client.WithLogger(c.logger.Named("client")),
		client.WithMetrics(collector),
	}
	if cfg.Tracing.Enabled {
		tp, err := tracing.Setup(cfg.Tracing)
		if err != nil {
			return err
		}
		c.provider = tp
		c.closers = append(c.closers, func(ctx context.Context) error { return tracing.Shutdown(ctx, tp) })
		clientOpts = append(clientOpts, client.WithTracing())
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		if cfg.RateLimitScope == config.RateLimitShared {
			clientOpts = append(clientOpts, client.WithRateLimit(cfg.RateLimit, burst))
		} else {
			clientOpts = append(clientOpts, client.WithRateLimitPerEndpoint(cfg.RateLimit, burst))
		}
	}

	cl, err := client.New(cfg.APIURL, append(clientOpts, s.clientOptions...)...)
	if err != nil {
		return err
	}
	c.client = cl

	serviceOpts := append([]service.Option{
		service.WithLogger(c.logger.Named("service")),
		service.WithMetrics(collector),
	}, s.serviceOpts...)

	c.Products = service.NewProductService(cl, c.cache, serviceOpts...)
	c.Auth = service.NewAuthService(cl, c.cache, c.session, serviceOpts...)
	c.Prices = service.NewPriceService(cl, c.cache, serviceOpts...)
	c.Analytics = service.NewAnalyticsService(cl, c.cache, serviceOpts...)
	c.Khata = service.NewKhataService(cl, c.cache, serviceOpts...)

	return nil
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the shared logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Client returns the API client
func (c *Container) Client() *client.Client {
	return c.client
}

// Session returns the session manager
func (c *Container) Session() *session.Manager {
	return c.session
}

// Cache returns the shared response cache
func (c *Container) Cache() cache.Store {
	return c.cache
}

// Metrics returns the Prometheus collector
func (c *Container) Metrics() *metrics.PrometheusCollector {
	return c.metrics
}

// Close releases the session storage and flushes pending spans
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	_ = c.logger.Sync()
	return errors.Join(errs...)
}
