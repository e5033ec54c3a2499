package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/4miners/shift/internal/escape"
	"github.com/4miners/shift/internal/namespace"
)

// CompileBatch builds one multi-row insert with every value inlined:
//
//	INSERT INTO "t" ("a","b") SELECT 1,'x' UNION SELECT 2,'y'
//
// Some drivers cap the number of bound parameters per statement, so this
// path carries none. Every literal comes from escape.Value and every
// identifier from escape.Identifier; no caller text is spliced in directly.
func (c *Compiler) CompileBatch(table string, columns []string, rows [][]any) (string, error) {
	if len(rows) == 0 {
		return "", buildErr("batch", errors.New("no rows"))
	}
	if len(columns) == 0 {
		return "", buildErr("batch", errors.New("no columns"))
	}

	// Table and columns are bare names here; a dotted reference would
	// address another schema or table.
	t, err := bareIdentifier(table)
	if err != nil {
		return "", buildErr("batch", err)
	}
	cols := make([]string, len(columns))
	for i, col := range columns {
		if cols[i], err = bareIdentifier(col); err != nil {
			return "", buildErr("batch", err)
		}
	}

	selects := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", buildErr("batch", fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns)))
		}
		lits := make([]string, len(row))
		for j, v := range row {
			if lits[j], err = escape.Value(v); err != nil {
				return "", buildErr("batch", fmt.Errorf("row %d column %s: %w", i, columns[j], err))
			}
		}
		selects[i] = "SELECT " + strings.Join(lits, ",")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) %s", t, strings.Join(cols, ","), strings.Join(selects, " UNION ")), nil
}

func bareIdentifier(name string) (string, error) {
	if !namespace.IsIdentifier(name) {
		return "", fmt.Errorf("%w: %q", escape.ErrInvalidIdentifier, name)
	}
	return escape.Identifier(name)
}
