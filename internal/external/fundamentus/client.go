// Package fundamentus scrapes the fundamentals table published by fundamentus.com.br.
package fundamentus

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/httputil"
	"github.com/wonny/carteira/pkg/logger"
)

// DefaultBaseURL is the public Fundamentus site
const DefaultBaseURL = "https://www.fundamentus.com.br"

const resultadoPath = "/resultado.php"

// Client handles communication with Fundamentus
// ⭐ SSOT: Fundamentus 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Fundamentus client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FetchIndicators downloads the full fundamentals table and extracts the six scoring indicators
func (c *Client) FetchIndicators(ctx context.Context) (contracts.IndicatorTable, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+resultadoPath)
	if err != nil {
		return contracts.IndicatorTable{}, fmt.Errorf("fundamentus request failed: %w", err)
	}
	defer resp.Body.Close()

	// 사이트는 ISO-8859-1로 응답: 헤더의 악센트 문자를 위해 UTF-8로 변환
	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return contracts.IndicatorTable{}, fmt.Errorf("failed to decode response charset: %w", err)
	}

	table, skipped, err := ParseResultado(body)
	if err != nil {
		return contracts.IndicatorTable{}, err
	}

	c.logger.WithFields(map[string]interface{}{
		"rows":    table.Len(),
		"skipped": skipped,
	}).Info("Fetched fundamentals")

	return table, nil
}
