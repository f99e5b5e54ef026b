// Package sectors loads and validates the ticker → sector membership mapping.
package sectors

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/carteira/internal/contracts"
)

// Unknown is the label of tickers no sector claims; they are dropped before scoring
const Unknown = "setor_desconhecido"

// Sector is one named group of tickers
type Sector struct {
	Name    string   `yaml:"name" json:"name"`
	Tickers []string `yaml:"tickers" json:"tickers"`
}

// Mapping is the ordered, validated sector membership
// ⭐ SSOT: 섹터 순서 = 파일 순서 = 랭킹 결과 순서
type Mapping struct {
	sectors []Sector
	index   map[string]int // ticker → sector position
}

type file struct {
	Sectors []Sector `yaml:"sectors"`
}

// Load reads and validates a YAML sector mapping
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sector mapping: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML sector mapping
// KnownFields(true): 알 수 없는 필드는 즉시 실패
func Parse(data []byte) (*Mapping, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, contracts.ConfigurationError("sectors", "invalid yaml: %v", err)
	}
	return New(f.Sectors)
}

// New validates sectors and builds the lookup index
func New(sectors []Sector) (*Mapping, error) {
	if len(sectors) == 0 {
		return nil, contracts.ConfigurationError("sectors", "sector mapping is empty")
	}

	m := &Mapping{
		sectors: make([]Sector, len(sectors)),
		index:   make(map[string]int),
	}
	names := make(map[string]bool, len(sectors))

	for i, s := range sectors {
		name := strings.TrimSpace(s.Name)
		field := fmt.Sprintf("sectors[%d]", i)
		if name == "" {
			return nil, contracts.ConfigurationError(field+".name", "required")
		}
		if name == Unknown {
			return nil, contracts.ConfigurationError(field+".name", "%q is reserved", Unknown)
		}
		if names[name] {
			return nil, contracts.ConfigurationError(field+".name", "duplicate sector %q", name)
		}
		names[name] = true

		if len(s.Tickers) == 0 {
			return nil, contracts.ConfigurationError(field+".tickers", "sector %q has no tickers", name)
		}

		tickers := make([]string, 0, len(s.Tickers))
		for _, t := range s.Tickers {
			t = normalizeTicker(t)
			if t == "" {
				return nil, contracts.ConfigurationError(field+".tickers", "empty ticker in sector %q", name)
			}
			if prev, ok := m.index[t]; ok {
				return nil, contracts.ConfigurationError(field+".tickers",
					"ticker %s listed in both %q and %q", t, m.sectors[prev].Name, name)
			}
			m.index[t] = i
			tickers = append(tickers, t)
		}
		m.sectors[i] = Sector{Name: name, Tickers: tickers}
	}

	return m, nil
}

// Sectors returns sector names in mapping order
func (m *Mapping) Sectors() []string {
	out := make([]string, len(m.sectors))
	for i, s := range m.sectors {
		out[i] = s.Name
	}
	return out
}

// Tickers returns every mapped ticker in mapping order
func (m *Mapping) Tickers() []string {
	out := make([]string, 0, len(m.index))
	for _, s := range m.sectors {
		out = append(out, s.Tickers...)
	}
	return out
}

// SectorOf returns the sector of a ticker, or Unknown
func (m *Mapping) SectorOf(ticker string) string {
	if i, ok := m.index[normalizeTicker(ticker)]; ok {
		return m.sectors[i].Name
	}
	return Unknown
}

// Has reports whether the mapping defines the named sector
func (m *Mapping) Has(name string) bool {
	for _, s := range m.sectors {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Partition splits a table by sector in mapping order.
// Every sector appears, possibly with an empty table.
// Rows of unmapped tickers are dropped and returned separately.
func (m *Mapping) Partition(table contracts.IndicatorTable) (contracts.SectorPartition, []string) {
	partition := make(contracts.SectorPartition, len(m.sectors))
	for i, s := range m.sectors {
		partition[i] = contracts.SectorTable{
			Sector: s.Name,
			Table: contracts.IndicatorTable{
				Columns: append([]contracts.Indicator(nil), table.Columns...),
				Rows:    make([]contracts.IndicatorRow, 0),
			},
		}
	}

	unknown := make([]string, 0)
	for _, row := range table.Rows {
		i, ok := m.index[normalizeTicker(row.Ticker)]
		if !ok {
			unknown = append(unknown, row.Ticker)
			continue
		}
		partition[i].Table.Rows = append(partition[i].Table.Rows, contracts.IndicatorRow{
			Ticker: row.Ticker,
			Values: append([]float64(nil), row.Values...),
		})
	}

	return partition, unknown
}

func normalizeTicker(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	return strings.TrimSuffix(t, ".SA")
}
