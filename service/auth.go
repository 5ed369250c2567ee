package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jewelcart/storefront"
	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/pkg/cache"
	"github.com/jewelcart/storefront/pkg/session"
)

// SessionStore is the part of the session manager the auth service drives
type SessionStore interface {
	Token(ctx context.Context) (string, bool)
	Begin(ctx context.Context, token string, user session.User) error
	UpdateUser(ctx context.Context, user session.User) error
	End(ctx context.Context) error
}

// AuthService logs users in and out. Session transitions flush the cache through the session.
type AuthService struct {
	*readThrough
	session SessionStore
}

// NewAuthService creates an auth service
func NewAuthService(api API, store cache.Store, sess SessionStore, opts ...Option) *AuthService {
	return &AuthService{readThrough: newReadThrough(api, store, opts...), session: sess}
}

// Login exchanges credentials for a session
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*session.User, error) {
	if err := validate("Login", creds); err != nil {
		return nil, err
	}

	res, err := s.api.Post(ctx, "/auth/login", creds)
	if err != nil {
		return nil, err
	}

	payload, err := decodeResult[AuthPayload](res)
	if err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, &storefront.APIError{
			StatusCode: res.StatusCode,
			Code:       "INVALID_RESPONSE",
			Message:    "login response carries no token",
		}
	}

	if err := s.session.Begin(ctx, payload.Token, payload.User); err != nil {
		return nil, err
	}
	s.logger.Info("logged in", zap.String("user_id", payload.User.ID))
	return &payload.User, nil
}

// Signup registers a user. When the response carries a token the user is logged in as well.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*session.User, error) {
	if err := validate("Signup", input); err != nil {
		return nil, err
	}

	res, err := s.api.Post(ctx, "/auth/signup", input)
	if err != nil {
		return nil, err
	}

	payload, err := decodeResult[AuthPayload](res)
	if err != nil {
		return nil, err
	}
	if payload.Token != "" {
		if err := s.session.Begin(ctx, payload.Token, payload.User); err != nil {
			return nil, err
		}
		s.logger.Info("signed up", zap.String("user_id", payload.User.ID))
	}
	return &payload.User, nil
}

// Logout ends the session. The local session is torn down even when the server call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	if _, ok := s.session.Token(ctx); ok {
		if _, err := s.api.Post(ctx, "/auth/logout", nil); err != nil {
			s.logger.Warn("logout request failed, ending local session anyway",
				zap.String("error_kind", storefront.Classify(err).String()),
				zap.Error(err))
		}
	}
	return s.session.End(ctx)
}

// CurrentUser fetches the logged in user and refreshes the stored copy. It is never cached.
func (s *AuthService) CurrentUser(ctx context.Context) (*session.User, error) {
	res, err := s.api.Get(ctx, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	user, err := decodeResult[session.User](res)
	if err != nil {
		return nil, err
	}
	if err := s.session.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("failed to refresh stored user", zap.Error(err))
	}
	return &user, nil
}

var _ API = (*client.Client)(nil)
