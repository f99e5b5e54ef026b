package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting shared by every API replica
// ⭐ SSOT: API 요청 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Bucket name (e.g., "optimize")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// ForClient returns a copy of the config scoped to one caller
func (c RateLimitConfig) ForClient(id string) RateLimitConfig {
	c.Key = c.Key + ":" + id
	return c
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// Allow records one request against cfg and reports whether it fits the window
// together with the number of requests still available.
// A disabled client admits everything.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil // Redis 비활성: 모두 허용
	}

	nowMs := time.Now().UnixMilli()
	windowMs := cfg.Window.Milliseconds()
	args := []interface{}{
		nowMs,
		nowMs - windowMs,
		cfg.Limit,
		windowMs,
		uuid.NewString(), // 같은 ms 요청도 별도 멤버
	}

	res, err := slidingWindow.Run(ctx, r.client.rdb, []string{joinKey(r.prefix, "ratelimit", cfg.Key)}, args...).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", cfg.Key, err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit %s: unexpected script reply %v", cfg.Key, res)
	}
	return res[0] == 1, int(res[1]), nil
}

// OptimizeRateLimit caps POST /api/optimize and /api/risk per client: 분당 30회
var OptimizeRateLimit = RateLimitConfig{
	Key:    "optimize",
	Limit:  30,
	Window: time.Minute,
}
