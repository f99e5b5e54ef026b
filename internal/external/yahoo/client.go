// Package yahoo fetches daily adjusted closing prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/httputil"
	"github.com/wonny/carteira/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// B3Suffix is appended to bare B3 tickers
const B3Suffix = ".SA"

// Client handles communication with the Yahoo Finance chart API
// ⭐ SSOT: Yahoo 가격 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo client
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

// Symbol converts a B3 ticker into a Yahoo symbol ("PETR4" → "PETR4.SA")
func Symbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if strings.Contains(ticker, ".") || strings.HasPrefix(ticker, "^") {
		return ticker
	}
	return ticker + B3Suffix
}

// chartResponse mirrors the subset of /v8/finance/chart used here
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		Currency             string `json:"currency"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchPrices fetches daily adjusted closes for one ticker in [from, to]
func (c *Client) FetchPrices(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error) {
	symbol := Symbol(ticker)

	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "div,split")
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	series, err := parseChart(ticker, &resp)
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"symbol": symbol,
		"count":  series.Len(),
	}).Debug("Fetched prices")

	return series, nil
}

// ParseChart decodes a raw chart API payload (fixtures, cached responses)
func ParseChart(ticker string, body []byte) (contracts.PriceSeries, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("failed to decode chart: %w", err)
	}
	return parseChart(ticker, &resp)
}

func parseChart(ticker string, resp *chartResponse) (contracts.PriceSeries, error) {
	if resp.Chart.Error != nil {
		return contracts.PriceSeries{}, fmt.Errorf("%s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return contracts.PriceSeries{}, fmt.Errorf("empty chart result")
	}
	result := resp.Chart.Result[0]

	// adjclose 우선, 없으면 quote close
	var closes []*float64
	switch {
	case len(result.Indicators.AdjClose) > 0:
		closes = result.Indicators.AdjClose[0].AdjClose
	case len(result.Indicators.Quote) > 0:
		closes = result.Indicators.Quote[0].Close
	}

	loc := time.UTC
	if result.Meta.ExchangeTimezoneName != "" {
		if l, err := time.LoadLocation(result.Meta.ExchangeTimezoneName); err == nil {
			loc = l
		}
	}

	series := contracts.PriceSeries{
		Ticker: strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(ticker), B3Suffix)),
		Points: make([]contracts.PricePoint, 0, len(result.Timestamp)),
	}
	for i, ts := range result.Timestamp {
		// null 값 = 결측 (보간하지 않음)
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		local := time.Unix(ts, 0).In(loc)
		series.Points = append(series.Points, contracts.PricePoint{
			Date:  time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Close: *closes[i],
		})
	}

	return series, nil
}
