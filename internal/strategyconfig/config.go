package strategyconfig

import "time"

// Config는 종목 선정 + 가중치 탐색 전략의 전체 설정
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Screening Screening `yaml:"screening" json:"screening"`
	Ranking   Ranking   `yaml:"ranking" json:"ranking"`
	Optimizer Optimizer `yaml:"optimizer" json:"optimizer"`
	History   History   `yaml:"history" json:"history"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID      string `yaml:"strategy_id" json:"strategy_id"`
	Version         string `yaml:"version" json:"version"`
	Timezone        string `yaml:"timezone" json:"timezone"`
	RefreshSchedule string `yaml:"refresh_schedule" json:"refresh_schedule"` // cron (5 fields)
}

// Screening: 점수 계산 전 하드컷
type Screening struct {
	DivYieldMaxPct float64 `yaml:"div_yield_max_pct" json:"div_yield_max_pct"` // 미만만 통과 (기본 100)
	PLMax          float64 `yaml:"pl_max" json:"pl_max"`                       // 0 = 비활성
	ROEMin         float64 `yaml:"roe_min" json:"roe_min"`                     // 0 = 비활성
}

// Ranking: AHP-Gaussiano 섹터별 top-K
type Ranking struct {
	TopK           int      `yaml:"top_k" json:"top_k"`
	Sectors        []string `yaml:"sectors" json:"sectors"` // 비어 있으면 전체 섹터
	MaxConcurrency int      `yaml:"max_concurrency" json:"max_concurrency"`
}

// Optimizer: hill-climb 가중치 탐색
type Optimizer struct {
	Iterations int     `yaml:"iterations" json:"iterations"`
	StepSize   float64 `yaml:"step_size" json:"step_size"`
	Seed       *uint64 `yaml:"seed" json:"seed"` // nil = 실행마다 새 시드 (결과에 기록)
}

// History: 가격 이력 구간
type History struct {
	LookbackDays       int    `yaml:"lookback_days" json:"lookback_days"`
	FillPolicy         string `yaml:"fill_policy" json:"fill_policy"` // forward | none
	CorrelationWindows []int  `yaml:"correlation_windows" json:"correlation_windows"`
}

// Fill policies
const (
	FillForward = "forward"
	FillNone    = "none"
)

// Lookback returns the history window as a duration
func (h History) Lookback() time.Duration {
	return time.Duration(h.LookbackDays) * 24 * time.Hour
}

// Default returns a config that passes Validate
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID:      "ahp_gaussiano_b3",
			Version:         "1.0.0",
			Timezone:        "America/Sao_Paulo",
			RefreshSchedule: "0 19 * * 1-5",
		},
		Screening: Screening{
			DivYieldMaxPct: 100,
		},
		Ranking: Ranking{
			TopK:           1,
			MaxConcurrency: 4,
		},
		Optimizer: Optimizer{
			Iterations: 1000,
			StepSize:   0.05,
		},
		History: History{
			LookbackDays:       365,
			FillPolicy:         FillForward,
			CorrelationWindows: []int{252, 63},
		},
	}
}

// DecisionSnapshot 감사용 설정 스냅샷
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}
