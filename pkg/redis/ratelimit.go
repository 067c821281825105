package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims, counts and records in one round trip.
// Members are unique so requests in the same millisecond all count.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	-- Remove old entries outside the window
	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	-- Count current requests in window
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	else
		return {0, 0}
	end
`)

// RateLimiter implements sliding window rate limiting using Redis
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "palette:127.0.0.1")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if r.client == nil || !r.client.Enabled() || cfg.Limit <= 0 {
		// If Redis is disabled, allow all requests
		return true, cfg.Limit, nil
	}

	key := r.Key(cfg.Key)
	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		windowStart,
		cfg.Limit,
		cfg.Window.Milliseconds(),
		fmt.Sprintf("%d-%s", now, uuid.NewString()),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("rate limit script returned %d values", len(result))
	}

	allowedFlag, ok1 := result[0].(int64)
	remaining, ok2 := result[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("rate limit script returned unexpected types")
	}

	return allowedFlag == 1, int(remaining), nil
}

// Key returns the Redis key used for a limiter key
func (r *RateLimiter) Key(name string) string {
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, name)
}

// PaletteRateLimit builds the per-client limit for palette requests
func PaletteRateLimit(remote string, limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Key:    "palette:" + remote,
		Limit:  limit,
		Window: window,
	}
}
