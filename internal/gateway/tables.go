package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/4miners/shift/internal/namespace"
	"github.com/4miners/shift/internal/schema"
)

// CreateTables installs a dapp's schema entries in declaration order.
//
// Entries of type "table" become CREATE TABLE statements and "index"
// entries become CREATE INDEX, both inside the dapp's namespace. Any other
// type fails the whole call before a statement runs. The namespaced
// definitions are returned so the caller can hand them to DropTables later;
// defs itself is not modified.
//
// Execution stops at the first failing entry. Entries applied before it
// stay applied.
func (g *Gateway) CreateTables(ctx context.Context, dappid string, defs []schema.Definition) ([]schema.Definition, error) {
	translated, stmts, err := g.PlanCreateTables(dappid, defs)
	if err != nil {
		return nil, err
	}

	for i, stmt := range stmts {
		if _, err := g.db.Exec(ctx, stmt); err != nil {
			e := g.fail(ErrCreateTables, "createTables", dappid, stmt, err)
			e.Definition = &translated[i]
			return nil, e
		}
	}

	g.logger.Info("dapp schema created", "dappid", dappid, "entries", len(stmts))
	return translated, nil
}

// PlanCreateTables namespaces defs and builds the statements CreateTables
// would run, one per entry and in the same order.
func (g *Gateway) PlanCreateTables(dappid string, defs []schema.Definition) ([]schema.Definition, []string, error) {
	if len(defs) == 0 {
		return nil, nil, ErrInvalidTableFormat
	}
	if dappid == "" {
		return nil, nil, fmt.Errorf("createTables: %w", namespace.ErrInvalidDappID)
	}

	translated := make([]schema.Definition, len(defs))
	for i, def := range defs {
		t, err := translate(dappid, def)
		if err != nil {
			return nil, nil, err
		}
		translated[i] = t
	}

	stmts := make([]string, len(translated))
	for i, def := range translated {
		sql, err := g.compiler.CompileDefinition(def)
		if err != nil {
			return nil, nil, fmt.Errorf("definition %d (%s): %w", i, defs[i].Table, err)
		}
		stmts[i] = sql
	}
	return translated, stmts, nil
}

// translate moves a definition into the dapp's namespace and maps the
// install-form type to the form the compiler understands.
func translate(dappid string, def schema.Definition) (schema.Definition, error) {
	out := def.Clone()
	out.Table = namespace.Qualify(dappid, def.Table)

	switch def.Type {
	case schema.TypeTable:
		out.Type = schema.TypeCreate
		for i := range out.ForeignKeys {
			out.ForeignKeys[i].Table = namespace.Qualify(dappid, out.ForeignKeys[i].Table)
		}
	case schema.TypeIndex:
		if def.Name != "" {
			out.Name = namespace.Qualify(dappid, def.Name)
		} else {
			out.Name = out.Table + "_" + strings.Join(def.Columns, "_")
		}
	default:
		return schema.Definition{}, &UnknownTableTypeError{Type: def.Type}
	}
	return out, nil
}

// DropTables removes schema objects named by already namespaced
// definitions, as returned by CreateTables.
//
// Names are stripped of every character outside [A-Za-z0-9_] first.
// "create" entries drop the table, "index" entries drop the index, and
// other types are skipped. The first failure is logged and stops the call.
func (g *Gateway) DropTables(ctx context.Context, dappid string, defs []schema.Definition) error {
	stmts, err := g.PlanDropTables(defs)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if _, err := g.db.Exec(ctx, stmt); err != nil {
			return g.fail(ErrDropTables, "dropTables", dappid, stmt, err)
		}
	}

	g.logger.Info("dapp schema dropped", "dappid", dappid, "entries", len(stmts))
	return nil
}

// PlanDropTables builds the statements DropTables would run. Entries of
// other types produce none.
func (g *Gateway) PlanDropTables(defs []schema.Definition) ([]string, error) {
	stmts := make([]string, 0, len(defs))
	for _, def := range defs {
		name := namespace.Sanitize(def.ObjectName())

		var (
			sql string
			err error
		)
		switch def.Type {
		case schema.TypeCreate:
			sql, err = g.compiler.DropTable(name)
		case schema.TypeIndex:
			sql, err = g.compiler.DropIndex(name)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, sql)
	}
	return stmts, nil
}
