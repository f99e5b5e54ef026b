package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs
const (
	TTLLong  = time.Hour      // 랭킹 (지표는 일 1회 갱신)
	TTLDaily = 24 * time.Hour // 가격 이력
)

// Cache stores JSON documents under a "<namespace>:cache:" key space
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client    *Client
	keyPrefix string
}

// NewCache creates a cache scoped to namespace
func NewCache(client *Client, namespace string) *Cache {
	return &Cache{client: client, keyPrefix: namespace + ":cache:"}
}

func (c *Cache) key(k string) string { return c.keyPrefix + k }

// Get decodes the cached document into dest.
// found is false on a miss and always false when Redis is disabled.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	raw, err := c.client.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// 스키마가 바뀐 오래된 항목: miss로 취급하고 지움
		_ = c.client.rdb.Del(ctx, c.key(key)).Err()
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set encodes value as JSON and stores it with ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.rdb.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes cached documents
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.client.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.rdb.Del(ctx, full...).Err()
}

func joinKey(parts ...string) string { return strings.Join(parts, ":") }

// RankingKey identifies a ranking by strategy config hash and trading date
func RankingKey(configHash, date string) string {
	return joinKey("ranking", configHash, date)
}

// PricesKey identifies a price history window for one ticker
func PricesKey(ticker, from, to string) string {
	return joinKey("prices", ticker, from, to)
}
