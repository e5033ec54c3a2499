package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/4miners/shift/internal/querysql"
	"github.com/4miners/shift/internal/store"
)

// DefaultBatchSize is how many rows one batch statement carries.
const DefaultBatchSize = 10

// DB is the database handle the gateway executes against.
// *store.Store satisfies it.
type DB interface {
	Query(ctx context.Context, query string, args ...any) ([]store.Row, error)
	Exec(ctx context.Context, query string, args ...any) (store.Ack, error)
}

// Request is one descriptor call from a dapp.
type Request struct {
	DappID string
	Body   json.RawMessage
}

// Result is what a query or batch returns. Select fills Rows; the other
// actions report the driver acknowledgement in RowsAffected.
type Result struct {
	Rows         []store.Row `json:"rows,omitempty"`
	RowsAffected int64       `json:"rowsAffected"`
}

// Gateway translates namespaced dapp requests into SQL and runs them.
//
// One Gateway is built per process and shared by every request. It holds
// no per-request state; the readiness flag is the only mutable field.
type Gateway struct {
	db        DB
	logger    *slog.Logger
	compiler  *querysql.Compiler
	refs      RefGenerator
	batchSize int
	ready     atomic.Bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the operator logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithDialect selects the SQL dialect. Defaults to postgres.
func WithDialect(d querysql.Dialect) Option {
	return func(g *Gateway) {
		g.compiler = querysql.NewCompiler(d)
	}
}

// WithBatchSize sets how many rows each batch statement carries.
// Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithRefGenerator sets how error references are produced.
// Defaults to UUIDv7Generator.
func WithRefGenerator(refs RefGenerator) Option {
	return func(g *Gateway) {
		if refs != nil {
			g.refs = refs
		}
	}
}

// New creates a Gateway over db.
func New(db DB, opts ...Option) *Gateway {
	g := &Gateway{
		db:        db,
		logger:    slog.Default(),
		compiler:  querysql.NewCompiler(querysql.Postgres),
		refs:      UUIDv7Generator{},
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dialect reports the SQL dialect statements are compiled for.
func (g *Gateway) Dialect() querysql.Dialect {
	return g.compiler.Dialect()
}

// MarkReady records that the surrounding system has the database ready.
// Nothing in the gateway waits on it.
func (g *Gateway) MarkReady() {
	if !g.ready.Swap(true) {
		g.logger.Info("sql gateway ready")
	}
}

// Ready reports whether MarkReady has been called.
func (g *Gateway) Ready() bool {
	return g.ready.Load()
}

// fail logs an execution failure with its full detail and returns the
// generic error the caller sees.
func (g *Gateway) fail(sentinel error, op, dappid, sql string, cause error) *Error {
	ref := g.refs.Generate()
	g.logger.Error(sentinel.Error(),
		"op", op,
		"ref", ref,
		"dappid", dappid,
		"sql", sql,
		"error", cause,
	)
	return &Error{Op: op, Ref: ref, Err: sentinel}
}
