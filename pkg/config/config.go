package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Port string
	Env  string // development, staging, production

	Database    DatabaseConfig
	Redis       RedisConfig
	Fundamentus FundamentusConfig
	Yahoo       YahooConfig

	// 전략/섹터 YAML 경로
	StrategyFile string
	SectorsFile  string

	LogLevel  string
	LogFormat string // json, console

	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL     string
	Enabled bool

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// FundamentusConfig holds the fundamentals scraper configuration
type FundamentusConfig struct {
	BaseURL        string
	RequestsPerSec float64
}

// YahooConfig holds the historical price provider configuration
type YahooConfig struct {
	BaseURL        string
	RequestsPerSec float64
}

var environments = []string{"development", "staging", "production"}

// Load reads configuration from the process environment (and an optional .env file).
// Malformed values are reported, never silently replaced by defaults.
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadDotEnv()

	env := &envReader{lookup: os.LookupEnv}
	cfg := &Config{
		Port: env.str("PORT", "8089"),
		Env:  env.str("ENV", "development"),
		Database: DatabaseConfig{
			URL:             env.str("DATABASE_URL", ""),
			Enabled:         env.boolean("DB_ENABLED", false),
			MaxConns:        env.integer("DB_MAX_CONNS", 10),
			MinConns:        env.integer("DB_MIN_CONNS", 2),
			MaxConnLifetime: env.duration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: env.duration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     env.str("REDIS_HOST", "localhost"),
			Port:     env.str("REDIS_PORT", "6379"),
			Password: env.str("REDIS_PASSWORD", ""),
			DB:       env.integer("REDIS_DB", 0),
			Enabled:  env.boolean("REDIS_ENABLED", false),
		},
		Fundamentus: FundamentusConfig{
			BaseURL:        env.str("FUNDAMENTUS_BASE_URL", "https://www.fundamentus.com.br"),
			RequestsPerSec: env.float("FUNDAMENTUS_RPS", 1),
		},
		Yahoo: YahooConfig{
			BaseURL:        env.str("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestsPerSec: env.float("YAHOO_RPS", 4),
		},
		StrategyFile:   env.str("STRATEGY_FILE", "config/strategy.yaml"),
		SectorsFile:    env.str("SECTORS_FILE", "config/sectors.yaml"),
		LogLevel:       env.str("LOG_LEVEL", "info"),
		LogFormat:      env.str("LOG_FORMAT", "json"),
		MetricsEnabled: env.boolean("METRICS_ENABLED", true),
	}

	if err := errors.Join(append(env.errs, cfg.validate()...)...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validate returns every cross-field problem at once
func (c *Config) validate() []error {
	var errs []error
	if c.Database.Enabled && c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when DB_ENABLED=true"))
	}
	if !slices.Contains(environments, c.Env) {
		errs = append(errs, fmt.Errorf("ENV=%q: must be one of %v", c.Env, environments))
	}
	if c.Fundamentus.RequestsPerSec <= 0 {
		errs = append(errs, errors.New("FUNDAMENTUS_RPS must be > 0"))
	}
	if c.Yahoo.RequestsPerSec <= 0 {
		errs = append(errs, errors.New("YAHOO_RPS must be > 0"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS"))
	}
	return errs
}

// loadDotEnv loads the first .env found next to the working directory or the binary.
// 이미 설정된 환경변수는 덮어쓰지 않음 (godotenv.Load 동작)
func loadDotEnv() {
	candidates := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates, filepath.Join(dir, ".env"), filepath.Join(dir, "..", ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
		return
	}
}

// envReader parses typed variables and remembers every parse failure
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	return v, ok && v != ""
}

func (r *envReader) fail(key, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return f
}

func (r *envReader) boolean(key string, def bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}
