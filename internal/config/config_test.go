package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{LogLevel: "info", LogFormat: "text", QueueHint: 64}, cfg)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("EVENTSCOPE_LOG_LEVEL", "debug")
	t.Setenv("EVENTSCOPE_LOG_FORMAT", "json")
	t.Setenv("EVENTSCOPE_QUEUE_HINT", "8")
	t.Setenv("EVENTSCOPE_STRICT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{LogLevel: "debug", LogFormat: "json", QueueHint: 8, Strict: true}, cfg)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("EVENTSCOPE_QUEUE_HINT", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
}

func TestValidate(t *testing.T) {
	base := Config{LogLevel: "info", LogFormat: "text"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"upper case format", func(c *Config) { c.LogFormat = "JSON" }, ""},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"negative hint", func(c *Config) { c.QueueHint = -1 }, "invalid queue hint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Config{LogLevel: "warn", LogFormat: "json"}.NewLogger(&buf, false)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, float64(1), rec["k"])
}

func TestNewLogger_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Config{LogLevel: "error", LogFormat: "text"}.NewLogger(&buf, true)

	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	logger.Debug("detail")
	assert.Contains(t, buf.String(), "msg=detail")
}
