package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gantry-web/gantry/internal/provider"
	"github.com/gantry-web/gantry/internal/resolve"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *RedisLimiter {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewRedisLimiter(RedisConfig{
		Client: client,
		Limit:  limit,
		Window: window,
	})
	require.NoError(t, err)
	return limiter
}

func TestRedisLimiterAllowsWithinBudget(t *testing.T) {
	limiter := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := limiter.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	info, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
}

func TestRedisLimiterKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	info, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	info, err = limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRedisLimiterReset(t *testing.T) {
	limiter := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)

	info, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, info.Allowed)

	require.NoError(t, limiter.Reset(ctx, "client-a"))

	info, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestNewRedisLimiterValidation(t *testing.T) {
	_, err := NewRedisLimiter(RedisConfig{Limit: 1, Window: time.Minute})
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	_, err = NewRedisLimiter(RedisConfig{Client: client, Limit: 0, Window: time.Minute})
	assert.Error(t, err)

	_, err = NewRedisLimiter(RedisConfig{Client: client, Limit: 1, Window: 0})
	assert.Error(t, err)
}

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	limiter := newTestLimiter(t, 2, time.Minute)

	resolver := resolve.NewResolver(provider.NewRegistry(), nil)
	require.NoError(t, resolver.RegisterMiddleware(Middleware(limiter, nil, nil)))

	d, err := resolver.Resolve(resolve.RouteSpec{
		Method:     http.MethodGet,
		Pattern:    "/ping",
		Middleware: []string{"rate_limit"},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return map[string]string{"pong": "true"}, nil
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Method(d.Method(), d.Pattern(), d)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a different client still has budget
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingLimiter struct {
	err error
}

func (l *failingLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	return nil, l.err
}

func TestMiddlewareFailsOpenAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	limiter := &failingLimiter{err: errors.New("redis: connection refused")}

	resolver := resolve.NewResolver(provider.NewRegistry(), nil)
	require.NoError(t, resolver.RegisterMiddleware(Middleware(limiter, nil, zap.New(core))))

	d, err := resolver.Resolve(resolve.RouteSpec{
		Method:     http.MethodGet,
		Pattern:    "/ping",
		Middleware: []string{"rate_limit"},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return map[string]string{"pong": "true"}, nil
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Method(d.Method(), d.Pattern(), d)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("rate limiter unavailable, allowing request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.1:1234", entries[0].ContextMap()["key"])
}
