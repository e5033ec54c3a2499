package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/4miners/shift/internal/config"
	"github.com/4miners/shift/internal/gateway"
	"github.com/4miners/shift/internal/queryir"
	"github.com/4miners/shift/internal/sandbox"
	"github.com/4miners/shift/internal/store"
)

// errConfig marks failures to configure or connect.
var errConfig = errors.New("configuration")

// runtime is everything a command needs to talk to the database.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	gateway *gateway.Gateway
	adapter *sandbox.Adapter
	store   *store.Store
}

// Close releases the database connection, if one was opened.
func (r *runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig layers the config file, DAPPSQL_* environment and flags.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	v := config.New()
	if opts.ConfigFile != "" {
		if err := config.ReadFile(v, opts.ConfigFile); err != nil {
			return config.Config{}, err
		}
	}

	for key, name := range map[string]string{
		"dialect":    "dialect",
		"dsn":        "dsn",
		"batch_size": "batch-size",
	} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, fmt.Errorf("bind --%s: %w", name, err)
			}
		}
	}
	if opts.Verbose {
		v.Set("log.level", "debug")
	}
	return config.Load(v)
}

// openRuntime builds the gateway. With connect false no database is opened
// and only planning calls (Compile, Plan*) may be used.
func openRuntime(ctx context.Context, opts *RootOptions, cmd *cobra.Command, connect bool) (*runtime, error) {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	r := &runtime{cfg: cfg, logger: logger}
	var db gateway.DB
	if connect {
		if err := cfg.RequireDSN(); err != nil {
			return nil, fmt.Errorf("%w: %w", errConfig, err)
		}
		st, err := store.Open(ctx, cfg.Dialect, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errConfig, err)
		}
		r.store = st
		db = st
	}

	r.gateway = gateway.New(db,
		gateway.WithLogger(logger),
		gateway.WithDialect(cfg.Dialect),
		gateway.WithBatchSize(cfg.BatchSize),
	)
	if connect {
		r.gateway.MarkReady()
	}
	r.adapter = sandbox.New(r.gateway, logger)
	return r, nil
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// fail reports err through the formatter and returns the ExitError for it.
// Database failures exit 1; everything detected before execution exits 2.
func fail(formatter *OutputFormatter, err error) error {
	code, exit := classify(err)

	var details any
	var ge *gateway.Error
	if errors.As(err, &ge) {
		d := map[string]any{"op": ge.Op, "ref": ge.Ref}
		if ge.Definition != nil {
			d["table"] = ge.Definition.Table
		}
		details = d
	}

	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(exit, code, err)
}

func classify(err error) (string, int) {
	var (
		de *queryir.DecodeError
		se *schemaError
		pe *os.PathError
	)
	switch {
	case gateway.IsExecutionError(err):
		return ErrCodeExecution, ExitFailure
	case errors.As(err, &de), errors.Is(err, gateway.ErrInvalidBatch):
		return ErrCodeDecode, ExitCommandError
	case gateway.IsBuildError(err):
		return ErrCodeBuild, ExitCommandError
	case errors.As(err, &se):
		return ErrCodeSchemaInvalid, ExitCommandError
	case errors.Is(err, errConfig):
		return ErrCodeConfig, ExitCommandError
	case errors.As(err, &pe):
		return ErrCodeNotFound, ExitCommandError
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}
