package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNonce(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		nonce, err := GenerateNonce()
		require.NoError(t, err)
		assert.Len(t, nonce, 22)
		assert.False(t, seen[nonce], "nonces must not repeat")
		seen[nonce] = true
	}
}

func TestCSPNonce(t *testing.T) {
	e := echo.New()
	e.Use(CSPNonce())

	var fromEcho, fromRequest string
	e.POST("/responder/:token", func(c echo.Context) error {
		fromEcho, _ = c.Get(nonceContextKey).(string)
		fromRequest = GetNonce(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/responder/abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotEmpty(t, fromRequest)
	assert.Equal(t, fromEcho, fromRequest)

	csp := rec.Header().Get("Content-Security-Policy")
	for _, directive := range []string{
		"script-src 'self' 'nonce-" + fromRequest + "'",
		"frame-src https://challenges.cloudflare.com",
		"form-action 'self'",
		"object-src 'none'",
	} {
		assert.Contains(t, csp, directive)
	}
}

func TestGetNonce(t *testing.T) {
	assert.Empty(t, GetNonce(context.Background()))
	ctx := context.WithValue(context.Background(), nonceKey{}, "abc")
	assert.Equal(t, "abc", GetNonce(ctx))
}
