package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/carteira/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), OptimizeRateLimit.ForClient("127.0.0.1"))
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != OptimizeRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", OptimizeRateLimit.Limit, remaining)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	if err := cache.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var result string
	found, err := cache.Get(ctx, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
	if err := cache.Delete(ctx, "key", "other"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"RankingKey", RankingKey("abc123", "2024-01-15"), "ranking:abc123:2024-01-15"},
		{"PricesKey", PricesKey("PETR4", "2023-01-01", "2024-01-01"), "prices:PETR4:2023-01-01:2024-01-01"},
		{"ForClient", OptimizeRateLimit.ForClient("10.0.0.1").Key, "optimize:10.0.0.1"},
		{"cache prefix", NewCache(&Client{}, "carteira").key("x"), "carteira:cache:x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	opts := options(config.RedisConfig{Host: "::1", Port: "6380", DB: 2})

	if opts.Addr != "[::1]:6380" {
		t.Errorf("Addr = %q, want [::1]:6380", opts.Addr)
	}
	if opts.DB != 2 {
		t.Errorf("DB = %d, want 2", opts.DB)
	}
	if opts.ReadTimeout != time.Second {
		t.Errorf("ReadTimeout = %v, want 1s", opts.ReadTimeout)
	}
}

func TestClient_NilSafe(t *testing.T) {
	var client *Client

	if client.Enabled() {
		t.Error("nil client reported enabled")
	}
	if client.Redis() != nil {
		t.Error("nil client exposed a redis handle")
	}
}
