package fundamentus

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/pkg/httputil"
	"github.com/wonny/carteira/pkg/logger"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"36,10", 36.10},
		{"1.234,56", 1234.56},
		{"312.456.789,00", 312456789},
		{"6,45%", 6.45},
		{"-1.520,33%", -1520.33},
		{" 0,00 ", 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, ParseNumber(tt.input), 1e-9, tt.input)
	}

	for _, missing := range []string{"", "-", "n/a"} {
		assert.True(t, math.IsNaN(ParseNumber(missing)), missing)
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "divyield", normalizeHeader("Div.Yield"))
	assert.Equal(t, "crescrec5a", normalizeHeader("Cresc. Rec.5a"))
	assert.Equal(t, "mrgliq", normalizeHeader("Mrg. Líq."))
	assert.Equal(t, "margliquida", normalizeHeader("marg_liquida"))
	assert.Equal(t, "p/vp", normalizeHeader(" P/VP "))
}

func TestParseResultado(t *testing.T) {
	f, err := os.Open("testdata/resultado.html")
	require.NoError(t, err)
	defer f.Close()

	table, skipped, err := ParseResultado(f)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"ITUB4", "OIBR3", "WEGE3"}, table.Tickers())

	wege, ok := table.Values(2)
	require.True(t, ok)
	assert.Equal(t, contracts.IndicatorValues{30.52, 8.91, 1.45, 18.70, 15.32, 29.21}, wege)

	oibr, _ := table.Values(1)
	assert.Equal(t, -0.31, oibr[contracts.PriceEarnings])
	assert.True(t, math.IsNaN(oibr[contracts.RevenueGrowth5Y]))
}

func TestParseResultado_MissingColumn(t *testing.T) {
	html := `<table id="resultado"><thead><tr><th>Papel</th><th>P/L</th></tr></thead>
<tbody><tr><td>WEGE3</td><td>30,52</td></tr></tbody></table>`

	_, _, err := ParseResultado(strings.NewReader(html))
	assert.ErrorIs(t, err, contracts.ErrConfiguration)
}

func TestClient_FetchIndicators(t *testing.T) {
	page, err := os.ReadFile("testdata/resultado.html")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resultado.php", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}))
	defer server.Close()

	client := NewClient(httputil.New(logger.Nop()).DisableRetry(), server.URL+"/", logger.Nop())
	table, err := client.FetchIndicators(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
}

func TestClient_FetchIndicatorsLatin1(t *testing.T) {
	page, err := os.ReadFile("testdata/resultado.html")
	require.NoError(t, err)

	// UTF-8 → ISO-8859-1 (fixture only has Latin-1 characters)
	latin1 := make([]byte, 0, len(page))
	for _, r := range string(page) {
		latin1 = append(latin1, byte(r))
	}
	latin1 = []byte(strings.Replace(string(latin1), "charset=utf-8", "charset=iso-8859-1", 1))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write(latin1)
	}))
	defer server.Close()

	client := NewClient(httputil.New(logger.Nop()).DisableRetry(), server.URL, logger.Nop())
	table, err := client.FetchIndicators(context.Background())
	require.NoError(t, err)

	wege, ok := table.Values(2)
	require.True(t, ok)
	assert.Equal(t, 15.32, wege[contracts.NetMargin])
}
