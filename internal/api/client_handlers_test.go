package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/flashcardexchange/flashcards/internal/errors"
	"github.com/flashcardexchange/flashcards/internal/ratelimit"
)

func TestCreateClient_ReturnsToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/clients")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[CreateClientResponse](t, resp)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Data.ClientID)
	assert.True(t, env.Data.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, ts.registry.Len())

	resp = ts.api.Get("/api/v1/me", bearer(env.Data.Token))
	require.Equal(t, http.StatusOK, resp.Code)
	me := decode[CurrentClientResponse](t, resp)
	assert.Equal(t, env.Data.ClientID, me.Data.ClientID)
	assert.False(t, me.Data.SignedIn)
	assert.Nil(t, me.Data.User)
}

func TestMe_RequiresToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/me")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	env := decode[any](t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, string(domainerrors.CodeUnauthorized), env.Code)

	resp = ts.api.Get("/api/v1/me", bearer("v4.local.garbage"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCloseClient_InvalidatesToken(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.newClient(t)

	resp := ts.api.Delete("/api/v1/clients/current", bearer(token))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, 0, ts.registry.Len())

	resp = ts.api.Get("/api/v1/me", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateClient_RateLimitedByIP(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, testOptions{authLimiter: limiter})

	resp := ts.api.Post("/api/v1/clients", "X-Forwarded-For: 203.0.113.7")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/clients", "X-Forwarded-For: 203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)

	resp = ts.api.Post("/api/v1/clients", "X-Forwarded-For: 198.51.100.1")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCreateClient_MaxClients(t *testing.T) {
	ts := setupTestServer(t, testOptions{maxClients: 1})
	ts.newClient(t)

	resp := ts.api.Post("/api/v1/clients")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, string(domainerrors.CodeRateLimited), decode[any](t, resp).Code)
}

func TestAuth_SignUpLoginLogout(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.signedIn(t, "ana@example.com")

	resp := ts.api.Get("/api/v1/me", bearer(token))
	me := decode[CurrentClientResponse](t, resp)
	require.True(t, me.Data.SignedIn)
	assert.Equal(t, "ana@example.com", me.Data.User.Email)

	resp = ts.api.Post("/api/v1/auth/username", bearer(token), map[string]any{"username": "ana"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "ana", decode[IdentityResponse](t, resp).Data.Username)

	resp = ts.api.Post("/api/v1/auth/logout", bearer(token))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	me = decode[CurrentClientResponse](t, ts.api.Get("/api/v1/me", bearer(token)))
	assert.False(t, me.Data.SignedIn)

	other := ts.newClient(t)
	resp = ts.api.Post("/api/v1/auth/login", bearer(other), map[string]any{
		"email":    "ANA@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "ana", decode[IdentityResponse](t, resp).Data.Username)
}

func TestAuth_Failures(t *testing.T) {
	ts := setupTestServer(t)
	ts.signedIn(t, "ana@example.com")
	token := ts.newClient(t)

	resp := ts.api.Post("/api/v1/auth/login", bearer(token), map[string]any{
		"email":    "ana@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, string(domainerrors.CodeInvalidCredentials), decode[any](t, resp).Code)

	resp = ts.api.Post("/api/v1/auth/signup", bearer(token), map[string]any{
		"email":    "ana@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Post("/api/v1/auth/signup", bearer(token), map[string]any{
		"email":    "not-an-email",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(domainerrors.CodeValidation), decode[any](t, resp).Code)

	resp = ts.api.Post("/api/v1/auth/username", bearer(token), map[string]any{"username": "ana"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuth_DeleteAccount(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.signedIn(t, "ana@example.com")

	resp := ts.api.Delete("/api/v1/auth/account", bearer(token))
	assert.Equal(t, http.StatusNoContent, resp.Code)

	other := ts.newClient(t)
	resp = ts.api.Post("/api/v1/auth/login", bearer(other), map[string]any{
		"email":    "ana@example.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
