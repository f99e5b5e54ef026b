package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/pkg/logger"
)

func TestNew(t *testing.T) {
	client := New(logger.Nop())

	require.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 3, client.retryConfig.MaxRetries)
	assert.True(t, client.retryConfig.Enabled)
	assert.Equal(t, "disabled", client.BreakerState())
}

func TestOptions(t *testing.T) {
	client := NewWithTimeout(logger.Nop(), 5*time.Second).
		WithRetry(5, 2*time.Second).
		WithRateLimit(4, 0).
		WithUserAgent("test-agent")

	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 5, client.retryConfig.MaxRetries)
	assert.Equal(t, 2*time.Second, client.retryConfig.InitialDelay)
	require.NotNil(t, client.limiter)
	assert.Equal(t, 1, client.limiter.Burst())
	assert.Equal(t, "test-agent", client.userAgent)

	assert.False(t, client.DisableRetry().retryConfig.Enabled)
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, DefaultUserAgent, r.UserAgent())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	resp, err := New(logger.Nop()).Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","count":3}`))
	}))
	defer server.Close()

	var out struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	require.NoError(t, New(logger.Nop()).GetJSON(context.Background(), server.URL, &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, 3, out.Count)
}

func TestRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(logger.Nop()).WithRetry(3, 10*time.Millisecond)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(logger.Nop()).WithRetry(3, 10*time.Millisecond).Get(context.Background(), server.URL)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := New(logger.Nop()).WithRetry(10, time.Second)
	start := time.Now()
	_, err := client.Get(ctx, server.URL)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestCircuitBreakerOpens(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(logger.Nop()).DisableRetry().WithCircuitBreaker("test", 2, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), server.URL)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
	}
	assert.Equal(t, "open", client.BreakerState())

	_, err := client.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(logger.Nop()).DisableRetry().WithCircuitBreaker("test", 1, time.Minute)
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), server.URL)
		require.Error(t, err)
	}
	assert.Equal(t, "closed", client.BreakerState())
}

func TestBackoff(t *testing.T) {
	client := New(logger.Nop()).WithRetry(5, time.Second)
	retryAfter := func(v string) *http.Response {
		return &http.Response{Header: http.Header{"Retry-After": []string{v}}}
	}

	tests := []struct {
		name    string
		attempt int
		resp    *http.Response
		want    time.Duration
	}{
		{"first", 0, nil, time.Second},
		{"doubles", 2, nil, 4 * time.Second},
		{"capped", 6, nil, 10 * time.Second},
		{"retry-after", 0, retryAfter("3"), 3 * time.Second},
		{"retry-after capped", 0, retryAfter("120"), 10 * time.Second},
		{"retry-after date ignored", 1, retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"), 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.backoff(tt.attempt, tt.resp))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{201, false},
		{400, false},
		{404, false},
		{429, true}, // Too Many Requests - should retry
		{500, true}, // Internal Server Error
		{502, true}, // Bad Gateway
		{503, true}, // Service Unavailable
		{504, true}, // Gateway Timeout
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.statusCode))
		})
	}
}
