// Package session owns the locally persisted authentication state: the bearer token and the
// last known user, which are always written and removed together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jewelcart/storefront/pkg/cache"
	"github.com/jewelcart/storefront/pkg/storage"
)

// Storage keys
const (
	TokenKey = "token"
	UserKey  = "user"
)

// User is the authenticated principal as returned by the auth endpoints
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
}

// Manager reads and transitions the session. Every transition flushes the whole cache because
// cached responses may depend on who was logged in.
type Manager struct {
	storage storage.Storage
	cache   cache.Store
	logger  *zap.Logger

	// state serializes writers; token and user change together under it
	state sync.Mutex

	mu        sync.RWMutex
	listeners map[int]func(Event)
	nextID    int
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager over the given storage and cache
func NewManager(store storage.Storage, c cache.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage:   store,
		cache:     c,
		logger:    zap.NewNop(),
		listeners: make(map[int]func(Event)),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Token returns the stored bearer token. A token without a user is not a session.
func (m *Manager) Token(ctx context.Context) (string, bool) {
	token, _, ok := m.load(ctx)
	return token, ok
}

// User returns the stored user
func (m *Manager) User(ctx context.Context) (*User, bool) {
	_, user, ok := m.load(ctx)
	return user, ok
}

// UserID returns the stored user id, falling back to the token subject
func (m *Manager) UserID(ctx context.Context) string {
	token, user, ok := m.load(ctx)
	if !ok {
		return ""
	}
	claims, err := ParseClaims(token)
	if err == nil && claims.Expired(time.Now()) {
		m.logger.Warn("stored token has expired", zap.String("subject", claims.Subject), zap.Time("expires_at", claims.ExpiresAt))
	}
	if user.ID != "" {
		return user.ID
	}
	if err == nil {
		return claims.Subject
	}
	return ""
}

// load reads the session. An incomplete session is discarded, but only while no writer holds
// the state lock; otherwise it is a write in progress and reads as no session.
func (m *Manager) load(ctx context.Context) (string, *User, bool) {
	token, user, complete, present := m.read(ctx)
	if complete || !present {
		return token, user, complete
	}

	if !m.state.TryLock() {
		return "", nil, false
	}
	defer m.state.Unlock()

	// re-read under the lock, a writer may have finished in between
	token, user, complete, present = m.read(ctx)
	if complete || !present {
		return token, user, complete
	}

	m.logger.Warn("discarding incomplete session")
	if err := m.remove(ctx); err != nil {
		m.logger.Warn("failed to discard incomplete session", zap.Error(err))
	}
	return "", nil, false
}

// read returns the stored session; present reports whether anything at all was stored
func (m *Manager) read(ctx context.Context) (token string, user *User, complete, present bool) {
	token, hasToken, err := m.storage.GetItem(ctx, TokenKey)
	if err != nil {
		m.logger.Warn("failed to read session token", zap.Error(err))
		return "", nil, false, false
	}
	rawUser, hasUser, err := m.storage.GetItem(ctx, UserKey)
	if err != nil {
		m.logger.Warn("failed to read session user", zap.Error(err))
		return "", nil, false, false
	}

	if !hasToken && !hasUser {
		return "", nil, false, false
	}

	var u User
	if hasToken && hasUser && token != "" {
		if err := json.Unmarshal([]byte(rawUser), &u); err == nil {
			return token, &u, true, true
		}
	}
	return "", nil, false, true
}

// Begin persists a new session, flushes the cache and publishes EventLogin
func (m *Manager) Begin(ctx context.Context, token string, user User) error {
	if token == "" {
		return errors.New("session token is empty")
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := m.store(ctx, token, string(rawUser)); err != nil {
		return err
	}

	m.cache.ClearAll()
	m.logger.Debug("session started, cache flushed", zap.String("user_id", user.ID))

	m.publish(Event{Type: EventLogin, User: &user})
	return nil
}

func (m *Manager) store(ctx context.Context, token, rawUser string) error {
	m.state.Lock()
	defer m.state.Unlock()

	if err := m.storage.SetItem(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := m.storage.SetItem(ctx, UserKey, rawUser); err != nil {
		_ = m.storage.RemoveItem(ctx, TokenKey)
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

// UpdateUser replaces the stored user of the current session without a login transition.
// It fails when there is no session.
func (m *Manager) UpdateUser(ctx context.Context, user User) error {
	m.state.Lock()
	defer m.state.Unlock()

	if _, ok := m.Token(ctx); !ok {
		return errors.New("no active session")
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := m.storage.SetItem(ctx, UserKey, string(rawUser)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

// End removes the session after a logout, flushes the cache and publishes EventLogout.
// The cache is flushed even when the storage fails.
func (m *Manager) End(ctx context.Context) error {
	return m.teardown(ctx, Event{Type: EventLogout})
}

// Expire tears the session down after the server rejected the token and publishes EventExpired
func (m *Manager) Expire(ctx context.Context, endpoint string) error {
	return m.teardown(ctx, Event{Type: EventExpired, Endpoint: endpoint})
}

// RequireLogin publishes EventAuthRequired for a call that was rejected locally
func (m *Manager) RequireLogin(ctx context.Context, endpoint string) {
	m.logger.Debug("authentication required", zap.String("endpoint", endpoint))
	m.publish(Event{Type: EventAuthRequired, Endpoint: endpoint})
}

func (m *Manager) teardown(ctx context.Context, event Event) error {
	m.state.Lock()
	if user, ok := m.User(ctx); ok {
		event.User = user
	}
	err := m.remove(ctx)
	m.state.Unlock()

	m.cache.ClearAll()
	m.logger.Debug("session cleared, cache flushed", zap.Stringer("event", event.Type))

	m.publish(event)
	return err
}

func (m *Manager) remove(ctx context.Context) error {
	return errors.Join(
		m.storage.RemoveItem(ctx, TokenKey),
		m.storage.RemoveItem(ctx, UserKey),
	)
}
