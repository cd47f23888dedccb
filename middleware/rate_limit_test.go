package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
	})

	assert.NotNil(t, rl)
	assert.Equal(t, 10, rl.config.Requests)
	assert.Equal(t, time.Minute, rl.config.Window)
	assert.NotNil(t, rl.config.KeyFunc)
	assert.NotNil(t, rl.config.Store)
	assert.Equal(t, "Demasiadas solicitudes. Intente nuevamente más tarde.", rl.config.Message)
}

func serve(t *testing.T, h echo.HandlerFunc, htmx bool) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimiterMiddleware(t *testing.T) {
	t.Run("WithinLimit", func(t *testing.T) {
		handler := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Second}).Middleware()(okHandler)

		for i := 0; i < 2; i++ {
			rec, err := serve(t, handler, false)
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("ExceededLimit", func(t *testing.T) {
		handler := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Second}).Middleware()(okHandler)

		_, err := serve(t, handler, false)
		assert.NoError(t, err)

		_, err = serve(t, handler, false)
		require.Error(t, err)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusTooManyRequests, he.Code)
	})

	t.Run("HXRequestExceeded", func(t *testing.T) {
		handler := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Second, Message: "Frene un poco"}).Middleware()(okHandler)

		_, err := serve(t, handler, true)
		assert.NoError(t, err)

		rec, err := serve(t, handler, true)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "Frene un poco")
	})

	t.Run("SharedStoreSeparatesNames", func(t *testing.T) {
		store := NewMemoryStore(time.Now)
		a := NewRateLimiter(RateLimitConfig{Name: "a", Requests: 1, Window: time.Minute, Store: store}).Middleware()(okHandler)
		b := NewRateLimiter(RateLimitConfig{Name: "b", Requests: 1, Window: time.Minute, Store: store}).Middleware()(okHandler)

		_, err := serve(t, a, false)
		assert.NoError(t, err)
		_, err = serve(t, b, false)
		assert.NoError(t, err)
	})

	t.Run("StoreErrorFailsOpen", func(t *testing.T) {
		handler := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute, Store: failingStore{}}).Middleware()(okHandler)
		for i := 0; i < 3; i++ {
			rec, err := serve(t, handler, false)
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int, error) {
	return 0, errors.New("store down")
}

func TestMemoryStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	n, _ := store.Hit(ctx, "ip", time.Minute)
	assert.Equal(t, 1, n)
	n, _ = store.Hit(ctx, "ip", time.Minute)
	assert.Equal(t, 2, n)

	now = now.Add(2 * time.Minute)
	store.Cleanup()
	assert.Empty(t, store.store)

	n, _ = store.Hit(ctx, "ip", time.Minute)
	assert.Equal(t, 1, n, "window restarts after expiry")
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("Skipping Redis store test: REDIS_URL not set")
	}

	store, err := NewRedisStoreFromURL(context.Background(), redisURL)
	require.NoError(t, err)
	defer store.Close()

	key := "test:" + uuid.New().String()
	n, err := store.Hit(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.Hit(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewLimiters(t *testing.T) {
	l := NewLimiters(NewMemoryStore(time.Now))
	assert.Equal(t, 5, l.Login.config.Requests)
	assert.Equal(t, "responder", l.Responder.config.Name)
	assert.Equal(t, 120, l.API.config.Requests)
}
