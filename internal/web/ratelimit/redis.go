package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a Redis-backed sliding window limiter. The window
// bookkeeping runs as a Lua script so concurrent checks stay atomic.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// RedisConfig holds configuration for the Redis limiter
type RedisConfig struct {
	Client *redis.Client
	// Limit is the maximum number of requests allowed per window
	Limit int
	// Window is the sliding window duration
	Window time.Duration
	// Prefix namespaces the limiter's keys
	Prefix string
}

var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, now)
		redis.call('EXPIRE', key, window)
		return {1, current + 1}
	end
	return {0, current}
`)

// NewRedisLimiter creates a Redis sliding window limiter
func NewRedisLimiter(config RedisConfig) (*RedisLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "ratelimit:"
	}

	return &RedisLimiter{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: prefix,
	}, nil
}

// Allow checks the key against the sliding window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)

	result, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key},
		now.UnixNano(),
		windowStart.UnixNano(),
		l.limit,
		int(l.window.Seconds()),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return nil, errors.New("unexpected rate limit script result")
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return nil, errors.New("unexpected rate limit script result")
	}
	count, ok := values[1].(int64)
	if !ok {
		return nil, errors.New("unexpected rate limit script result")
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Info{
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   now.Add(l.window),
		Allowed:   allowed == 1,
	}, nil
}

// Reset clears the window for the given key
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
