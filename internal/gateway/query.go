package gateway

import (
	"context"
	"fmt"

	"github.com/4miners/shift/internal/namespace"
	"github.com/4miners/shift/internal/queryir"
)

// Query runs one select, insert, update or remove descriptor for a dapp.
//
// The descriptor's tables are confined to the dapp's namespace exactly once
// before compiling. Build failures are returned as they are and nothing
// reaches the database. A database failure is logged in full and the caller
// gets an *Error wrapping ErrQuery.
func (g *Gateway) Query(ctx context.Context, action string, req Request) (Result, error) {
	if req.DappID == "" {
		return Result{}, fmt.Errorf("%s: %w", action, namespace.ErrInvalidDappID)
	}

	q, err := queryir.Decode(action, req.Body)
	if err != nil {
		return Result{}, err
	}

	if skipped := queryir.Rewrite(q, req.DappID); len(skipped) > 0 {
		g.logger.Warn("aliased join references left unqualified",
			"op", action,
			"dappid", req.DappID,
			"tables", skipped,
		)
	}

	sql, params, err := g.compiler.Compile(q)
	if err != nil {
		return Result{}, err
	}

	g.logger.Debug("query built",
		"op", action,
		"dappid", req.DappID,
		"tables", queryir.Tables(q),
		"sql", sql,
		"params", len(params),
	)

	if action == queryir.ActionSelect {
		rows, err := g.db.Query(ctx, sql, params...)
		if err != nil {
			return Result{}, g.fail(ErrQuery, action, req.DappID, sql, err)
		}
		return Result{Rows: rows}, nil
	}

	ack, err := g.db.Exec(ctx, sql, params...)
	if err != nil {
		return Result{}, g.fail(ErrQuery, action, req.DappID, sql, err)
	}
	return Result{RowsAffected: ack.RowsAffected}, nil
}

// Compile runs the same pipeline as Query without touching the database and
// returns the statement that would be executed.
func (g *Gateway) Compile(action string, req Request) (string, []any, error) {
	if req.DappID == "" {
		return "", nil, fmt.Errorf("%s: %w", action, namespace.ErrInvalidDappID)
	}
	q, err := queryir.Decode(action, req.Body)
	if err != nil {
		return "", nil, err
	}
	queryir.Rewrite(q, req.DappID)
	return g.compiler.Compile(q)
}
