package contracts

// RankedRow is one selected instrument with its sector-local score
// ⭐ SSOT: ScoringEngine → orchestrator 랭킹 결과 전달
type RankedRow struct {
	Ticker   string          `json:"ticker"`
	Sector   string          `json:"sector"`
	Rank     int             `json:"rank"`     // 1-based, within sector
	Weighted IndicatorValues `json:"weighted"` // normalized column × criterion weight
	Original IndicatorValues `json:"original"` // raw indicator values
	Score    float64         `json:"score"`    // ranking_(%)
}

// RankedTable is the top-K selection of one or more sectors
type RankedTable struct {
	TopK int         `json:"top_k"`
	Rows []RankedRow `json:"rows"`
}

// Len returns the number of selected rows
func (t RankedTable) Len() int {
	return len(t.Rows)
}

// Tickers returns the selected tickers in table order
func (t RankedTable) Tickers() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Ticker
	}
	return out
}

// Sectors returns the distinct sectors in first-seen order
func (t RankedTable) Sectors() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range t.Rows {
		if !seen[r.Sector] {
			seen[r.Sector] = true
			out = append(out, r.Sector)
		}
	}
	return out
}

// Clone returns a copy that shares no backing array with t
func (t RankedTable) Clone() RankedTable {
	return RankedTable{
		TopK: t.TopK,
		Rows: append([]RankedRow(nil), t.Rows...),
	}
}
