package strategyconfig

import (
	"fmt"
	"time"
	_ "time/tzdata" // 컨테이너에 zoneinfo가 없어도 timezone 검증

	"github.com/robfig/cron/v3"

	"github.com/wonny/carteira/internal/contracts"
	"github.com/wonny/carteira/internal/portfolio"
)

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 contracts.ErrConfiguration 계열 ValidationError 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return invalid("meta.strategy_id", "required")
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return invalid("meta.timezone", err.Error())
		}
	}
	if cfg.Meta.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Meta.RefreshSchedule); err != nil {
			return invalid("meta.refresh_schedule", err.Error())
		}
	}

	// === Screening ===
	if cfg.Screening.DivYieldMaxPct <= 0 {
		return invalid("screening.div_yield_max_pct", "must be > 0")
	}
	if cfg.Screening.PLMax < 0 {
		return invalid("screening.pl_max", "must be >= 0")
	}

	// === Ranking ===
	if cfg.Ranking.TopK < 1 {
		return invalid("ranking.top_k", "must be >= 1")
	}
	if cfg.Ranking.MaxConcurrency < 0 {
		return invalid("ranking.max_concurrency", "must be >= 0")
	}
	seen := make(map[string]bool, len(cfg.Ranking.Sectors))
	for i, s := range cfg.Ranking.Sectors {
		field := fmt.Sprintf("ranking.sectors[%d]", i)
		if s == "" {
			return invalid(field, "must not be empty")
		}
		if seen[s] {
			return invalid(field, fmt.Sprintf("duplicate sector %q", s))
		}
		seen[s] = true
	}

	// === Optimizer ===
	if cfg.Optimizer.Iterations < 0 || cfg.Optimizer.Iterations > portfolio.MaxIterations {
		return invalid("optimizer.iterations", fmt.Sprintf("must be in [0, %d]", portfolio.MaxIterations))
	}
	if cfg.Optimizer.StepSize <= 0 || cfg.Optimizer.StepSize > 1 {
		return invalid("optimizer.step_size", "must be in (0, 1]")
	}

	// === History ===
	if cfg.History.LookbackDays < 2 {
		return invalid("history.lookback_days", "must be >= 2")
	}
	switch cfg.History.FillPolicy {
	case FillForward, FillNone:
	default:
		return invalid("history.fill_policy", "must be one of: forward, none")
	}
	for i, w := range cfg.History.CorrelationWindows {
		if w < 2 || w > cfg.History.LookbackDays {
			return invalid(fmt.Sprintf("history.correlation_windows[%d]", i),
				fmt.Sprintf("must be in [2, %d]", cfg.History.LookbackDays))
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Optimizer.Seed == nil {
		warnings = append(warnings, Warning{
			Code:    "UNSEEDED_OPTIMIZER",
			Message: "optimizer.seed 미설정: 실행마다 가중치가 달라짐 (시드는 결과에 기록됨)",
		})
	}

	if cfg.Optimizer.Iterations < 100 {
		warnings = append(warnings, Warning{
			Code:    "LOW_ITERATIONS",
			Message: "optimizer.iterations < 100: 초기 무작위 가중치에서 거의 벗어나지 못함",
		})
	}

	if cfg.History.FillPolicy == FillNone {
		warnings = append(warnings, Warning{
			Code:    "NO_FILL",
			Message: "fill_policy=none: 휴장일이 다른 종목이 섞이면 수익률 행이 크게 줄어듦",
		})
	}

	return warnings
}

func invalid(field, message string) error {
	return contracts.ValidationError{Kind: contracts.ErrConfiguration, Field: field, Message: message}
}
