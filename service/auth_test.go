package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcart/storefront"
	"github.com/jewelcart/storefront/pkg/session"
)

func TestAuthService_LoginStartsSessionAndFlushesCache(t *testing.T) {
	e := newAnonymousEnv(t)
	e.backend.mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"token":"jwt-1","user":{"id":"u9","name":"Asha","role":"customer"}}}`)
	})
	svc := NewAuthService(e.client, e.cache, e.session)
	e.cache.Set("products:list", []byte(`{}`), time.Minute)

	user, err := svc.Login(context.Background(), Credentials{Email: "asha@example.com", Password: "secret"})

	require.NoError(t, err)
	assert.Equal(t, "u9", user.ID)
	token, ok := e.session.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, "jwt-1", token)
	assert.Equal(t, 0, e.cache.Len())
}

func TestAuthService_LoginWithoutToken(t *testing.T) {
	e := newAnonymousEnv(t)
	e.backend.handle("POST /api/auth/login", http.StatusOK, `{"success":true,"data":{"user":{"id":"u9"}}}`)
	svc := NewAuthService(e.client, e.cache, e.session)

	_, err := svc.Login(context.Background(), Credentials{Email: "asha@example.com", Password: "secret"})

	var apiErr *storefront.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_RESPONSE", apiErr.Code)
	_, ok := e.session.Token(context.Background())
	assert.False(t, ok)
}

func TestAuthService_LoginRejected(t *testing.T) {
	e := newAnonymousEnv(t)
	e.backend.handle("POST /api/auth/login", http.StatusBadRequest, `{"success":false,"error":{"code":"INVALID_CREDENTIALS","message":"Invalid email or password"}}`)
	svc := NewAuthService(e.client, e.cache, e.session)

	_, err := svc.Login(context.Background(), Credentials{Email: "asha@example.com", Password: "wrong"})

	assert.Equal(t, "Invalid email or password", storefront.Message(err))
	assert.Equal(t, 1, e.backend.Hits("POST /api/auth/login"))
}

func TestAuthService_InvalidCredentialsNeverSent(t *testing.T) {
	e := newAnonymousEnv(t)
	svc := NewAuthService(e.client, e.cache, e.session)

	_, err := svc.Login(context.Background(), Credentials{Email: "not-an-email", Password: ""})
	var vErr *storefront.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Login", vErr.Op)

	_, err = svc.Signup(context.Background(), SignupInput{Name: "A", Email: "a@example.com", Password: "short"})
	require.ErrorAs(t, err, &vErr)

	assert.Equal(t, 0, e.backend.Total())
}

func TestAuthService_SignupWithoutTokenKeepsAnonymous(t *testing.T) {
	e := newAnonymousEnv(t)
	e.backend.handle("POST /api/auth/signup", http.StatusCreated, `{"success":true,"data":{"user":{"id":"u10","name":"Ravi"}}}`)
	svc := NewAuthService(e.client, e.cache, e.session)

	user, err := svc.Signup(context.Background(), SignupInput{Name: "Ravi", Email: "ravi@example.com", Password: "longenough", Phone: "+919876543210"})

	require.NoError(t, err)
	assert.Equal(t, "u10", user.ID)
	_, ok := e.session.Token(context.Background())
	assert.False(t, ok)
}

func TestAuthService_LogoutTearsDownEvenWhenServerFails(t *testing.T) {
	e := newEnv(t)
	e.backend.handle("POST /api/auth/logout", http.StatusInternalServerError, `{"success":false,"message":"boom"}`)
	svc := NewAuthService(e.client, e.cache, e.session)
	e.cache.Set("product:p1", []byte(`{}`), time.Minute)

	var events []session.EventType
	e.session.Subscribe(func(ev session.Event) { events = append(events, ev.Type) })

	require.NoError(t, svc.Logout(context.Background()))

	_, ok := e.session.Token(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 0, e.cache.Len())
	assert.Equal(t, 4, e.backend.Hits("POST /api/auth/logout"), "logout is retried like any other call")
	assert.Equal(t, []session.EventType{session.EventLogout}, events)
}

func TestAuthService_LogoutWithoutSessionSkipsServer(t *testing.T) {
	e := newAnonymousEnv(t)
	svc := NewAuthService(e.client, e.cache, e.session)

	require.NoError(t, svc.Logout(context.Background()))
	assert.Equal(t, 0, e.backend.Total())
}

func TestAuthService_CurrentUserRefreshesStoredUser(t *testing.T) {
	e := newEnv(t)
	e.backend.handle("GET /api/auth/me", http.StatusOK, `{"success":true,"data":{"id":"u1","name":"Meera","role":"admin"}}`)
	svc := NewAuthService(e.client, e.cache, e.session)

	for i := 0; i < 2; i++ {
		user, err := svc.CurrentUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Meera", user.Name)
	}

	stored, ok := e.session.User(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Meera", stored.Name)
	assert.Equal(t, 2, e.backend.Hits("GET /api/auth/me"), "current user is never cached")
}
