package middleware

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jewelcart/storefront"
)

// LoggingConfig holds configuration for logging middleware
type LoggingConfig struct {
	Logger        *zap.Logger
	UserID        func(ctx context.Context) string
	SlowThreshold time.Duration
	ExtraFields   map[string]interface{}
}

// LoggingOption is a functional option for logging configuration
type LoggingOption func(*LoggingConfig)

// WithLogger sets a custom zap logger
func WithLogger(logger *zap.Logger) LoggingOption {
	return func(c *LoggingConfig) {
		c.Logger = logger
	}
}

// WithUserID sets how the current user id is resolved for log fields
func WithUserID(fn func(ctx context.Context) string) LoggingOption {
	return func(c *LoggingConfig) {
		c.UserID = fn
	}
}

// WithSlowThreshold logs successful requests slower than d at Warn
func WithSlowThreshold(d time.Duration) LoggingOption {
	return func(c *LoggingConfig) {
		c.SlowThreshold = d
	}
}

// WithExtraFields adds extra fields to all log entries
func WithExtraFields(fields map[string]interface{}) LoggingOption {
	return func(c *LoggingConfig) {
		c.ExtraFields = fields
	}
}

// Logging logs the start and the outcome of every logical request.
// Server failures log at Error, rejections at Warn, everything else at Info.
func Logging(opts ...LoggingOption) storefront.Middleware {
	config := &LoggingConfig{
		Logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(ctx context.Context, req *storefront.Request, next storefront.Handler) (*storefront.Response, error) {
		start := time.Now()

		fields := []zap.Field{
			zap.String("endpoint", req.Endpoint()),
		}
		if id, ok := RequestIDFromContext(ctx); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if config.UserID != nil {
			if userID := config.UserID(ctx); userID != "" {
				fields = append(fields, zap.String("user_id", userID))
			}
		}
		for k, v := range config.ExtraFields {
			fields = append(fields, zap.Any(k, v))
		}

		config.Logger.Debug("API request started", fields...)

		resp, err := next(ctx, req)

		duration := time.Since(start)
		responseFields := append(fields, zap.Duration("duration", duration))

		// a request refused for lack of a session never reached the network
		if !errors.Is(err, storefront.ErrAuthenticationRequired) {
			attempts := req.RetryCount + 1
			if err == nil && resp.Attempts > 0 {
				attempts = resp.Attempts
			}
			responseFields = append(responseFields, zap.Int("attempts", attempts))
		}

		if err != nil {
			kind := storefront.Classify(err)
			responseFields = append(responseFields,
				zap.String("error_kind", kind.String()),
				zap.String("error", storefront.Message(err)),
			)

			switch kind {
			case storefront.KindTransient, storefront.KindUnknown:
				config.Logger.Error("API request failed", responseFields...)
			default:
				config.Logger.Warn("API request rejected", responseFields...)
			}
			return resp, err
		}

		responseFields = append(responseFields, zap.Int("status", resp.StatusCode))
		if config.SlowThreshold > 0 && duration > config.SlowThreshold {
			config.Logger.Warn("slow API request", append(responseFields, zap.Duration("threshold", config.SlowThreshold))...)
		} else {
			config.Logger.Info("API request completed", responseFields...)
		}

		return resp, nil
	}
}
