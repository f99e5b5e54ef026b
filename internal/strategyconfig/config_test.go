package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wonny/carteira/internal/contracts"
)

func TestLoad(t *testing.T) {
	// 저장소의 샘플 설정
	path := "../../config/strategy.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.StrategyID != "ahp_gaussiano_b3" {
		t.Errorf("expected strategy_id=ahp_gaussiano_b3, got %s", cfg.Meta.StrategyID)
	}
	if cfg.Optimizer.StepSize != 0.05 {
		t.Errorf("expected step_size=0.05, got %v", cfg.Optimizer.StepSize)
	}

	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	t.Logf("config hash: %s", hash)
	t.Logf("yaml size: %d bytes", len(yamlData))
}

func TestParse_UnknownField(t *testing.T) {
	doc := []byte(`
meta:
  strategy_id: test
ranking:
  top_k: 2
  topk: 3
`)
	if _, err := Parse(doc); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"bad schedule", func(c *Config) { c.Meta.RefreshSchedule = "every day" }, "meta.refresh_schedule"},
		{"zero div yield cap", func(c *Config) { c.Screening.DivYieldMaxPct = 0 }, "screening.div_yield_max_pct"},
		{"zero top_k", func(c *Config) { c.Ranking.TopK = 0 }, "ranking.top_k"},
		{"duplicate sector", func(c *Config) { c.Ranking.Sectors = []string{"bancos", "bancos"} }, "ranking.sectors[1]"},
		{"negative iterations", func(c *Config) { c.Optimizer.Iterations = -5 }, "optimizer.iterations"},
		{"too many iterations", func(c *Config) { c.Optimizer.Iterations = 10_000_000 }, "optimizer.iterations"},
		{"zero step", func(c *Config) { c.Optimizer.StepSize = 0 }, "optimizer.step_size"},
		{"short lookback", func(c *Config) { c.History.LookbackDays = 1 }, "history.lookback_days"},
		{"bad fill policy", func(c *Config) { c.History.FillPolicy = "interpolate" }, "history.fill_policy"},
		{"window too long", func(c *Config) { c.History.CorrelationWindows = []int{400} }, "history.correlation_windows[0]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, contracts.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
			var verr contracts.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Errorf("expected field %s, got %v", tc.field, err)
			}
		})
	}
}

func TestValidate_ZeroIterationsAllowed(t *testing.T) {
	cfg := Default()
	cfg.Optimizer.Iterations = 0
	if err := Validate(cfg); err != nil {
		t.Errorf("iterations=0 should be valid: %v", err)
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	cfg.Optimizer.Iterations = 10
	cfg.History.FillPolicy = FillNone

	warnings := Warn(cfg)
	if len(warnings) != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", len(warnings), warnings)
	}

	seed := uint64(42)
	cfg = Default()
	cfg.Optimizer.Seed = &seed
	if w := Warn(cfg); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}
}

func TestHash_ChangesWithConfig(t *testing.T) {
	a, _ := Hash(Default())
	cfg := Default()
	cfg.Ranking.TopK = 3
	b, _ := Hash(cfg)
	if a == b {
		t.Error("different configs produced the same hash")
	}
}

func TestDecisionSnapshot(t *testing.T) {
	yamlData := []byte("test yaml content")

	snapshot, err := NewDecisionSnapshot(Default(), yamlData)
	if err != nil {
		t.Fatalf("NewDecisionSnapshot failed: %v", err)
	}
	if snapshot.StrategyID != "ahp_gaussiano_b3" {
		t.Errorf("expected strategy_id=ahp_gaussiano_b3, got %s", snapshot.StrategyID)
	}
	if len(snapshot.ConfigHash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(snapshot.ConfigHash))
	}
}

func TestLoad_TempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	doc := `
meta:
  strategy_id: temp
screening:
  div_yield_max_pct: 100
ranking:
  top_k: 2
optimizer:
  iterations: 50
  step_size: 0.05
  seed: 7
history:
  lookback_days: 90
  fill_policy: forward
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Optimizer.Seed == nil || *cfg.Optimizer.Seed != 7 {
		t.Errorf("expected seed 7, got %v", cfg.Optimizer.Seed)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse(nil)
	if err == nil || !strings.Contains(err.Error(), "empty document") {
		t.Fatalf("expected empty document error, got %v", err)
	}
}
