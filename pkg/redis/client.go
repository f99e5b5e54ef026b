package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/carteira/pkg/config"
)

// Client owns the Redis connection pool.
// A Client built from a disabled config has no pool: cache and limiter calls become no-ops.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb *redis.Client // nil = disabled
}

// New connects and pings Redis, or returns a disabled Client when cfg.Enabled is false
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{}, nil
	}

	opts := options(cfg)
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// options maps application config onto go-redis options.
// 캐시/리밋 용도이므로 타임아웃을 짧게 둠 (Redis 장애 시 빠르게 fail-open)
func options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// Enabled reports whether a live pool is attached
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Ping checks the connection; a disabled client is always healthy
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the pool
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

// Redis exposes the underlying go-redis client (nil when disabled)
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}
