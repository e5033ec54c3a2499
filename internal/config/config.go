// Package config loads dappsql settings from an optional config file,
// DAPPSQL_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/4miners/shift/internal/gateway"
	"github.com/4miners/shift/internal/querysql"
)

// EnvPrefix is prepended to every environment variable, e.g.
// DAPPSQL_LOG_LEVEL for log.level.
const EnvPrefix = "DAPPSQL"

// Config is the resolved process configuration.
type Config struct {
	Dialect   querysql.Dialect `mapstructure:"dialect"`
	DSN       string           `mapstructure:"dsn"`
	BatchSize int              `mapstructure:"batch_size"`
	Log       LogConfig        `mapstructure:"log"`
}

// LogConfig selects the operator log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// New returns a viper instance with defaults and environment lookup set up.
// Flags and a config file can be layered on before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("dialect", string(querysql.Postgres))
	v.SetDefault("dsn", "")
	v.SetDefault("batch_size", gateway.DefaultBatchSize)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges the config file at path into v. The format follows the
// file extension (yaml, json, toml).
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Load resolves v into a Config and checks it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	d, err := querysql.ParseDialect(string(cfg.Dialect))
	if err != nil {
		return Config{}, err
	}
	cfg.Dialect = d

	if cfg.BatchSize < 1 {
		return Config{}, fmt.Errorf("batch_size must be at least 1, got %d", cfg.BatchSize)
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, err
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("unsupported log format %q", cfg.Log.Format)
	}
	return cfg, nil
}

// ErrNoDSN is returned when a command needs a database and none is configured.
var ErrNoDSN = errors.New("no database configured: set --dsn or DAPPSQL_DSN")

// RequireDSN reports ErrNoDSN when cfg has no data source.
func (c Config) RequireDSN() error {
	if c.DSN == "" {
		return ErrNoDSN
	}
	return nil
}
