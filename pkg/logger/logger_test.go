package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carteira/pkg/config"
)

func newBuffered(level, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithWriter(&config.Config{Env: "development", LogLevel: level, LogFormat: format}, &buf), &buf
}

// lines decodes one JSON object per written line
func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBuffered("warn", "json")
	assert.Equal(t, zerolog.WarnLevel, log.Level())

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "w", entries[0]["message"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestLevelsAreIndependent(t *testing.T) {
	quiet, quietBuf := newBuffered("error", "json")
	chatty, chattyBuf := newBuffered("debug", "json")

	quiet.Info("hidden")
	chatty.Debug("shown")

	assert.Empty(t, quietBuf.String())
	assert.Len(t, lines(t, chattyBuf), 1)
}

func TestFields(t *testing.T) {
	log, buf := newBuffered("debug", "json")

	log.Component("orchestrator").
		WithField("run_id", "r-1").
		WithFields(map[string]interface{}{
			"stage":    "rank",
			"selected": 12,
		}).
		WithError(errors.New("boom")).
		Info("Stage done")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "carteira", e["service"])
	assert.Equal(t, "development", e["env"])
	assert.Equal(t, "orchestrator", e["component"])
	assert.Equal(t, "r-1", e["run_id"])
	assert.Equal(t, "rank", e["stage"])
	assert.Equal(t, float64(12), e["selected"])
	assert.Equal(t, "boom", e["error"])
	assert.Equal(t, "Stage done", e["message"])
	assert.Contains(t, e, "time")
}

func TestChildDoesNotMutateParent(t *testing.T) {
	parent, buf := newBuffered("info", "json")
	_ = parent.WithField("child", true)
	parent.Info("plain")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "child")
}

func TestConsoleFormat(t *testing.T) {
	log, buf := newBuffered("info", "console")
	log.WithField("ticker", "WEGE3").Info("Price fetched")

	out := buf.String()
	assert.Contains(t, out, "Price fetched")
	assert.Contains(t, out, "WEGE3")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("ignored")
	log.WithFields(map[string]interface{}{"a": 1}).Warn("ignored")
	assert.Equal(t, zerolog.Disabled, log.Level())
}
