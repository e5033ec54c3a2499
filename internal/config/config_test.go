package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4miners/shift/internal/querysql"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, querysql.Postgres, cfg.Dialect)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.ErrorIs(t, cfg.RequireDSN(), ErrNoDSN)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DAPPSQL_DIALECT", "sqlite")
	t.Setenv("DAPPSQL_DSN", "/tmp/dapps.db")
	t.Setenv("DAPPSQL_BATCH_SIZE", "25")
	t.Setenv("DAPPSQL_LOG_LEVEL", "debug")
	t.Setenv("DAPPSQL_LOG_FORMAT", "json")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, querysql.SQLite, cfg.Dialect)
	assert.Equal(t, "/tmp/dapps.db", cfg.DSN)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.NoError(t, cfg.RequireDSN())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dappsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dialect: postgresql
dsn: postgres://localhost/shift?sslmode=disable
batch_size: 50
log:
  level: warn
`), 0o644))

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, querysql.Postgres, cfg.Dialect)
	assert.Equal(t, "postgres://localhost/shift?sslmode=disable", cfg.DSN)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestReadFile_Missing(t *testing.T) {
	assert.Error(t, ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  any
	}{
		{"dialect", "dialect", "oracle"},
		{"batch size", "batch_size", 0},
		{"log level", "log.level", "loud"},
		{"log format", "log.format", "xml"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			v.Set(tc.key, tc.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "dappid", "3")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"dappid":"3"`)

	_, err = NewLogger(&buf, LogConfig{Level: "trace"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}
