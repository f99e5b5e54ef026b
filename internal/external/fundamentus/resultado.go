package fundamentus

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/carteira/internal/contracts"
)

// headerIndicators maps normalized column headers to scoring indicators
var headerIndicators = map[string]contracts.Indicator{
	"p/l":         contracts.PriceEarnings,
	"p/vp":        contracts.PriceBook,
	"divyield":    contracts.DividendYield,
	"crescrec5a":  contracts.RevenueGrowth5Y,
	"mrgliq":      contracts.NetMargin,
	"margliquida": contracts.NetMargin,
	"roe":         contracts.ReturnOnEquity,
}

const tickerHeader = "papel"

// ParseResultado extracts the six indicators from the resultado.php HTML table.
// Values are kept in the units shown on the page (percent columns as percent).
// Returns the number of body rows skipped for having no ticker.
func ParseResultado(r io.Reader) (contracts.IndicatorTable, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return contracts.IndicatorTable{}, 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table#resultado")
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return contracts.IndicatorTable{}, 0, fmt.Errorf("resultado table not found")
	}

	// 헤더 → 컬럼 위치
	tickerCol := -1
	columns := make(map[contracts.Indicator]int)
	table.Find("thead th, tr:first-child th").Each(func(i int, th *goquery.Selection) {
		key := normalizeHeader(th.Text())
		if key == tickerHeader {
			tickerCol = i
			return
		}
		if ind, ok := headerIndicators[key]; ok {
			if _, dup := columns[ind]; !dup {
				columns[ind] = i
			}
		}
	})

	if tickerCol < 0 {
		return contracts.IndicatorTable{}, 0, contracts.ConfigurationError("columns", "ticker column %q not found", "Papel")
	}
	for _, ind := range contracts.Indicators {
		if _, ok := columns[ind]; !ok {
			return contracts.IndicatorTable{}, 0, contracts.ConfigurationError("columns", "indicator column %q not found", ind.String())
		}
	}

	rows := make(map[string]contracts.IndicatorValues)
	skipped := 0
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		ticker := strings.ToUpper(strings.TrimSpace(cells.Eq(tickerCol).Text()))
		if ticker == "" {
			skipped++
			return
		}
		var values contracts.IndicatorValues
		for _, ind := range contracts.Indicators {
			values[ind] = ParseNumber(cells.Eq(columns[ind]).Text())
		}
		rows[ticker] = values
	})

	return contracts.NewIndicatorTable(rows), skipped, nil
}

// ParseNumber parses Brazilian formatted numbers ("1.234,56", "6,45%", "-3,2").
// Empty or unparseable cells become NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || s == "-" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// normalizeHeader: 소문자, 공백/점/밑줄 제거, 악센트 제거
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	replacer := strings.NewReplacer(
		" ", "", ".", "", "_", "", " ", "",
		"í", "i", "á", "a", "ã", "a", "ç", "c", "é", "e", "ó", "o", "ú", "u", "â", "a", "ê", "e",
	)
	return replacer.Replace(h)
}
