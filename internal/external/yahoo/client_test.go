package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/pkg/httputil"
	"github.com/wonny/carteira/pkg/logger"
)

// 2024-01-02, 03, 04 at 13:00 UTC (10:00 in São Paulo)
const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "PETR4.SA", "currency": "BRL", "exchangeTimezoneName": "America/Sao_Paulo"},
      "timestamp": [1704200400, 1704286800, 1704373200],
      "indicators": {
        "quote": [{"close": [37.5, null, 38.1]}],
        "adjclose": [{"adjclose": [30.25, null, 30.9]}]
      }
    }],
    "error": null
  }
}`

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"PETR4", "PETR4.SA"},
		{" petr4 ", "PETR4.SA"},
		{"VALE3.SA", "VALE3.SA"},
		{"^BVSP", "^BVSP"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Symbol(tt.input), tt.input)
	}
}

func TestParseChart(t *testing.T) {
	series, err := ParseChart("PETR4", []byte(chartFixture))
	require.NoError(t, err)

	assert.Equal(t, "PETR4", series.Ticker)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, date(2024, 1, 2), series.Points[0].Date)
	assert.Equal(t, 30.25, series.Points[0].Close)
	assert.Equal(t, date(2024, 1, 4), series.Points[1].Date)
	assert.Equal(t, 30.9, series.Points[1].Close)
}

func TestParseChart_QuoteFallback(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"symbol":"X.SA"},"timestamp":[1704200400],
"indicators":{"quote":[{"close":[12.5]}]}}],"error":null}}`

	series, err := ParseChart("X.SA", []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "X", series.Ticker)
	require.Equal(t, 1, series.Len())
	assert.Equal(t, 12.5, series.Points[0].Close)
}

func TestParseChart_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"api error", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{"empty result", `{"chart":{"result":[],"error":null}}`},
		{"malformed", `{"chart":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChart("PETR4", []byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestClient_FetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/PETR4.SA", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1704153600", r.URL.Query().Get("period1"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	client := NewClient(httputil.New(logger.Nop()).DisableRetry(), server.URL, logger.Nop())
	series, err := client.FetchPrices(context.Background(), "PETR4", date(2024, 1, 2), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestClient_FetchPricesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(httputil.New(logger.Nop()).DisableRetry(), server.URL, logger.Nop())
	_, err := client.FetchPrices(context.Background(), "XXXX3", date(2024, 1, 2), date(2024, 1, 5))

	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
