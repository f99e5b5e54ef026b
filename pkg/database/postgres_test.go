package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/pkg/config"
)

func TestMigrationFiles(t *testing.T) {
	names, err := MigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	sql, err := migrations.ReadFile(names[0])
	require.NoError(t, err)
	for _, table := range []string{
		"data.indicator_snapshots",
		"data.daily_prices",
		"selection.ranking_runs",
		"selection.ranking_rows",
		"portfolio.optimization_runs",
		"portfolio.positions",
	} {
		assert.True(t, strings.Contains(string(sql), table), table)
	}
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{URL: "://not a url"})
	assert.Error(t, err)
}

func TestPoolConfig(t *testing.T) {
	pc, err := poolConfig(config.DatabaseConfig{
		URL:             "postgres://u:p@localhost:5432/carteira",
		MaxConns:        8,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, "carteira", pc.ConnConfig.Database)
	assert.Equal(t, uint16(5432), pc.ConnConfig.Port)
}

func TestNewAndMigrate(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 1})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	// 두 번째 실행은 아무것도 적용하지 않음
	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, db.Ping(ctx))
}
