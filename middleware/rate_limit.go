package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimitStore counts hits per key inside a fixed window
type RateLimitStore interface {
	// Hit increments key and returns the count within the current window
	Hit(ctx context.Context, key string, window time.Duration) (int, error)
}

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Name prefixes the keys so limiters sharing a store stay apart
	Name string
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc is a function that returns a unique key for rate limiting (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
	// Store keeps the counters; defaults to a process-local MemoryStore
	Store RateLimitStore
}

// RateLimiter is a per-endpoint rate limiter
type RateLimiter struct {
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Demasiadas solicitudes. Intente nuevamente más tarde."
	}
	if config.Store == nil {
		config.Store = NewMemoryStore(time.Now)
	}
	return &RateLimiter{config: config}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rl.config.Name + ":" + rl.config.KeyFunc(c)

			count, err := rl.config.Store.Hit(c.Request().Context(), key, rl.config.Window)
			if err != nil {
				// A broken store must not lock users out
				log.Printf("[SECURITY] Rate limit store error for %s: %v", rl.config.Name, err)
				return next(c)
			}

			if count > rl.config.Requests {
				if c.Request().Header.Get("HX-Request") == "true" {
					return c.HTML(http.StatusTooManyRequests, `<div class="alert alert-error">`+rl.config.Message+`</div>`)
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryStore keeps counters in process memory
type MemoryStore struct {
	now   func() time.Time
	mu    sync.Mutex
	store map[string]*rateLimitEntry
}

// NewMemoryStore creates an empty in-memory store using now as its clock
func NewMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{now: now, store: make(map[string]*rateLimitEntry)}
}

// Hit implements RateLimitStore
func (m *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, exists := m.store[key]
	if !exists || now.After(entry.expiresAt) {
		m.store[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}
	entry.count++
	return entry.count, nil
}

// Cleanup removes expired entries
func (m *MemoryStore) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
		}
	}
}

// RunCleanup removes expired entries every minute until ctx is done
func (m *MemoryStore) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

// RedisStore shares counters between instances through Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client; keys are stored under "ratelimit:"
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

// NewRedisStoreFromURL connects to redisURL and checks the connection
func NewRedisStoreFromURL(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(client), nil
}

// Hit implements RateLimitStore with INCR plus an expiry set on the first hit
func (r *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	key = r.prefix + key
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count request: %w", err)
	}
	return int(incr.Val()), nil
}

// Close releases the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Limiters groups the rate limiters used by the routes
type Limiters struct {
	Login     *RateLimiter
	Responder *RateLimiter
	API       *RateLimiter
}

// NewLimiters builds the route limiters on a shared store
func NewLimiters(store RateLimitStore) *Limiters {
	return &Limiters{
		// 5 login attempts per minute per IP
		Login: NewRateLimiter(RateLimitConfig{
			Name:     "login",
			Requests: 5,
			Window:   time.Minute,
			Message:  "Demasiados intentos de inicio de sesión. Espere un minuto e intente nuevamente.",
			Store:    store,
		}),
		// 10 professional responses per minute per IP
		Responder: NewRateLimiter(RateLimitConfig{
			Name:     "responder",
			Requests: 10,
			Window:   time.Minute,
			Message:  "Demasiados envíos. Espere antes de intentar nuevamente.",
			Store:    store,
		}),
		// 120 authenticated API requests per minute per IP
		API: NewRateLimiter(RateLimitConfig{
			Name:     "api",
			Requests: 120,
			Window:   time.Minute,
			Store:    store,
		}),
	}
}
