package contracts

import (
	"fmt"
	"math"
	"sort"
)

// Indicator identifies one of the six fundamentals used for scoring
type Indicator int

const (
	PriceEarnings   Indicator = iota // P/L (preço / lucro)
	PriceBook                        // P/VP (preço / valor patrimonial)
	DividendYield                    // Div.Yield
	RevenueGrowth5Y                  // Cresc. Rec.5a
	NetMargin                        // Marg. Líquida
	ReturnOnEquity                   // ROE

	NumIndicators = 6
)

// Indicators lists every indicator in canonical column order
var Indicators = [NumIndicators]Indicator{
	PriceEarnings,
	PriceBook,
	DividendYield,
	RevenueGrowth5Y,
	NetMargin,
	ReturnOnEquity,
}

var indicatorNames = [NumIndicators]string{
	"p/l",
	"p/vp",
	"div.yield",
	"cresc. rec.5a",
	"marg_liquida",
	"roe",
}

// String returns the column label used in tables and APIs
func (i Indicator) String() string {
	if i < 0 || int(i) >= NumIndicators {
		return fmt.Sprintf("indicator(%d)", int(i))
	}
	return indicatorNames[i]
}

// IsCost reports whether lower values are better (inverted before scoring)
func (i Indicator) IsCost() bool {
	return i == PriceEarnings || i == PriceBook
}

// ParseIndicator maps a column label back to its Indicator
func ParseIndicator(name string) (Indicator, bool) {
	for i, n := range indicatorNames {
		if n == name {
			return Indicator(i), true
		}
	}
	return 0, false
}

// IndicatorValues holds one value per indicator in canonical order
type IndicatorValues [NumIndicators]float64

// IndicatorRow is one instrument's indicator values, aligned to IndicatorTable.Columns
type IndicatorRow struct {
	Ticker string    `json:"ticker"`
	Values []float64 `json:"values"`
}

// IndicatorTable is the per-instrument fundamentals table
// ⭐ 계약: Ticker는 테이블 내 유일, 값은 유한 실수 (screening 단계에서 보장)
type IndicatorTable struct {
	Columns []Indicator    `json:"columns"`
	Rows    []IndicatorRow `json:"rows"`
}

// NewIndicatorTable builds a table with the canonical column order
func NewIndicatorTable(rows map[string]IndicatorValues) IndicatorTable {
	table := IndicatorTable{
		Columns: append([]Indicator(nil), Indicators[:]...),
		Rows:    make([]IndicatorRow, 0, len(rows)),
	}
	for ticker, values := range rows {
		table.Rows = append(table.Rows, IndicatorRow{Ticker: ticker, Values: append([]float64(nil), values[:]...)})
	}
	table.SortByTicker()
	return table
}

// Len returns the number of rows
func (t IndicatorTable) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of an indicator column, or -1
func (t IndicatorTable) ColumnIndex(ind Indicator) int {
	for i, c := range t.Columns {
		if c == ind {
			return i
		}
	}
	return -1
}

// Tickers returns the row keys in table order
func (t IndicatorTable) Tickers() []string {
	tickers := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		tickers[i] = r.Ticker
	}
	return tickers
}

// Values extracts the canonical six values of a row.
// Returns false if any indicator column is missing.
func (t IndicatorTable) Values(row int) (IndicatorValues, bool) {
	var out IndicatorValues
	for _, ind := range Indicators {
		idx := t.ColumnIndex(ind)
		if idx < 0 || idx >= len(t.Rows[row].Values) {
			return out, false
		}
		out[ind] = t.Rows[row].Values[idx]
	}
	return out, true
}

// Clone returns a deep copy
func (t IndicatorTable) Clone() IndicatorTable {
	out := IndicatorTable{
		Columns: append([]Indicator(nil), t.Columns...),
		Rows:    make([]IndicatorRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = IndicatorRow{Ticker: r.Ticker, Values: append([]float64(nil), r.Values...)}
	}
	return out
}

// SortByTicker orders rows by ticker in place
func (t IndicatorTable) SortByTicker() {
	sort.Slice(t.Rows, func(i, j int) bool {
		return t.Rows[i].Ticker < t.Rows[j].Ticker
	})
}

// IsFinite reports whether every value of the row is a finite number
func (r IndicatorRow) IsFinite() bool {
	for _, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SectorTable is one sector's slice of the indicator table
type SectorTable struct {
	Sector string         `json:"sector"`
	Table  IndicatorTable `json:"table"`
}

// SectorPartition is the ordered per-sector split of an IndicatorTable
// ⭐ SSOT: 섹터 순서 = sector mapping 순서
type SectorPartition []SectorTable

// Total returns the number of rows across all sectors
func (p SectorPartition) Total() int {
	n := 0
	for _, s := range p {
		n += s.Table.Len()
	}
	return n
}
