package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the strategy file at path.
// The raw document is returned alongside so callers can snapshot exactly what was run.
func Load(path string) (*Config, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read strategy %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, raw, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, raw, nil
}

// Parse decodes one YAML strategy document and validates it.
// ⭐ SSOT: KnownFields(true) — 오타/미사용 필드는 즉시 실패
func Parse(raw []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	cfg := new(Config)
	switch err := dec.Decode(cfg); {
	case errors.Is(err, io.EOF):
		return nil, errors.New("decode strategy config: empty document")
	case err != nil:
		return nil, fmt.Errorf("decode strategy config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Hash returns the hex SHA-256 of the config's JSON encoding.
// Struct field order is fixed, so equal configs always hash equally.
func Hash(cfg *Config) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("encode strategy config: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// NewDecisionSnapshot pairs a parsed config with its source document for later audit
func NewDecisionSnapshot(cfg *Config, raw []byte) (*DecisionSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}
	return &DecisionSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(raw),
		StrategyID: cfg.Meta.StrategyID,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
