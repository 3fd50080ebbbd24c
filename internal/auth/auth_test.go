package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, claims, err := tm.GenerateToken("7", "Project Supervisor")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "7", parsed.Subject)
	assert.Equal(t, "Project Supervisor", parsed.Role)
	assert.Equal(t, claims.ID, parsed.ID)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hashed, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "hunter2"))
	assert.Error(t, ComparePassword(hashed, "hunter3"))
}

func TestRevocations(t *testing.T) {
	r := NewRevocations()
	r.Revoke("old", time.Now().Add(-time.Minute))
	r.Revoke("live", time.Now().Add(time.Minute))

	assert.True(t, r.IsRevoked("live"))
	assert.False(t, r.IsRevoked("old"))
	assert.False(t, r.IsRevoked("other"))
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	revoked := NewRevocations()
	mw := NewAuthMiddleware(tm, revoked)

	app := fiber.New()
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(p.AccountID)
	})

	token, claims, err := tm.GenerateToken("7", "Admin")
	require.NoError(t, err)

	call := func(header string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	status, body := call("Bearer " + token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "7", body)

	status, _ = call("")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call("Basic abc")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call("Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	status, _ = call("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, status)
}
