package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/carteira/pkg/logger"
)

// DefaultUserAgent is sent when no other agent is configured
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) carteira/1.0"

// StatusError reports a non-success HTTP status after retries
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Client is an HTTP client wrapper with retry, rate limiting and a circuit breaker
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	userAgent   string
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// New creates a new HTTP client
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
		retryConfig: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Enabled:      true,
		},
		userAgent: DefaultUserAgent,
	}
}

// NewWithTimeout creates a client with custom timeout
func NewWithTimeout(log *logger.Logger, timeout time.Duration) *Client {
	client := New(log)
	client.httpClient.Timeout = timeout
	return client
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimit caps outgoing requests per second (token bucket)
func (c *Client) WithRateLimit(requestsPerSec float64, burst int) *Client {
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(requestsPerSec), burst)
	return c
}

// WithCircuitBreaker trips after consecutive failures and rejects calls until the timeout passes
func (c *Client) WithCircuitBreaker(name string, consecutiveFailures uint32, openTimeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)
	return c
}

// WithUserAgent overrides the User-Agent header
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// BreakerState returns the circuit breaker state, or "disabled"
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Get performs a GET request.
// The response is returned only for 2xx/3xx status codes; the caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.send(req)
}

// GetJSON performs a GET request and decodes the JSON body into dest
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", url, err)
	}
	return nil
}

// send applies the User-Agent and rate limit, runs the request and logs the outcome
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.guarded(req)

	log := c.logger.WithFields(map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"duration": time.Since(start),
	})
	if err != nil {
		log.WithError(err).Error("HTTP request failed")
		return nil, err
	}
	log.WithField("status_code", resp.StatusCode).Debug("HTTP request completed")
	return resp, nil
}

// guarded runs attempts inside the circuit breaker when one is configured.
// 4xx responses are returned to the caller without counting as breaker failures.
func (c *Client) guarded(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.attempts(req)
	}

	var clientErr *StatusError
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.attempts(req)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !IsRetryableError(statusErr.StatusCode) {
			clientErr = statusErr // 상대 서버 장애가 아님
			return nil, nil
		}
		return resp, err
	})
	switch {
	case err != nil:
		return nil, err
	case clientErr != nil:
		return nil, clientErr
	}
	return out.(*http.Response), nil
}

// attempts sends req until it gets a non-retryable answer or runs out of retries.
// A final status >= 400 becomes a *StatusError.
func (c *Client) attempts(req *http.Request) (*http.Response, error) {
	retries := 0
	if c.retryConfig.Enabled {
		retries = c.retryConfig.MaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		retryable := err != nil || IsRetryableError(resp.StatusCode)

		if !retryable || attempt == retries {
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 400 {
				drain(resp)
				return nil, &StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode}
			}
			return resp, nil
		}

		wait := c.backoff(attempt, resp)
		if resp != nil {
			drain(resp)
		}
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   wait,
			"url":     req.URL.String(),
		}).Warn("Retrying HTTP request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}
	}
}

// backoff doubles InitialDelay per attempt up to MaxDelay.
// A Retry-After header (seconds) on the failed response takes precedence, still capped at MaxDelay.
func (c *Client) backoff(attempt int, resp *http.Response) time.Duration {
	delay := c.retryConfig.InitialDelay << attempt
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			delay = time.Duration(secs) * time.Second
		}
	}
	if delay <= 0 || delay > c.retryConfig.MaxDelay {
		delay = c.retryConfig.MaxDelay
	}
	return delay
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == 429
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
