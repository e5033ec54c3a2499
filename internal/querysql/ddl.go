package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/4miners/shift/internal/escape"
	"github.com/4miners/shift/internal/schema"
)

// CompileDefinition builds the DDL statement for an applied definition
// (type "create" or "index"). DDL carries no bound parameters; defaults
// are rendered by the escape package.
func (c *Compiler) CompileDefinition(def schema.Definition) (string, error) {
	switch def.Type {
	case schema.TypeCreate:
		sql, err := c.createTable(def)
		if err != nil {
			return "", buildErr("create", err)
		}
		return sql, nil
	case schema.TypeIndex:
		sql, err := c.createIndex(def)
		if err != nil {
			return "", buildErr("index", err)
		}
		return sql, nil
	default:
		return "", buildErr("definition", fmt.Errorf("unknown definition type %q", def.Type))
	}
}

// createTable renders
//
//	CREATE TABLE IF NOT EXISTS "t" ("a" TYPE [PRIMARY KEY] [UNIQUE] [NOT NULL] [DEFAULT x], ...,
//	FOREIGN KEY ("f") REFERENCES "t2"("c"))
func (c *Compiler) createTable(def schema.Definition) (string, error) {
	qt := &quoter{}
	table := qt.quote(def.Table)

	parts := make([]string, 0, len(def.Fields)+len(def.ForeignKeys))
	for _, f := range def.Fields {
		col, err := c.columnDef(qt, f)
		if err != nil {
			return "", err
		}
		parts = append(parts, col)
	}
	for _, fk := range def.ForeignKeys {
		parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
			qt.quote(fk.Field), qt.quote(fk.Table), qt.quote(fk.TableField)))
	}
	if qt.err != nil {
		return "", qt.err
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(parts, ", ")), nil
}

func (c *Compiler) columnDef(qt *quoter, f schema.Field) (string, error) {
	typ, err := c.dialect.columnType(f.Type, f.Length)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", f.Name, err)
	}
	col := qt.quote(f.Name) + " " + typ
	if f.PrimaryKey {
		col += " PRIMARY KEY"
	}
	if f.Unique {
		col += " UNIQUE"
	}
	if f.NotNull {
		col += " NOT NULL"
	}
	if f.Default != nil {
		lit, err := escape.Value(f.Default)
		if err != nil {
			return "", fmt.Errorf("column %q default: %w", f.Name, err)
		}
		col += " DEFAULT " + lit
	}
	return col, nil
}

// createIndex renders CREATE [UNIQUE] INDEX IF NOT EXISTS "n" ON "t" ("a", "b").
func (c *Compiler) createIndex(def schema.Definition) (string, error) {
	if len(def.Columns) == 0 {
		return "", errors.New("index needs at least one column")
	}
	qt := &quoter{}
	cols := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		cols[i] = qt.quote(col)
	}
	name := qt.quote(def.ObjectName())
	table := qt.quote(def.Table)
	if qt.err != nil {
		return "", qt.err
	}

	unique := ""
	if def.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, name, table, strings.Join(cols, ", ")), nil
}

// DropTable renders DROP TABLE IF EXISTS for an already sanitized name.
// Postgres drops dependent objects with CASCADE; SQLite has no CASCADE.
func (c *Compiler) DropTable(name string) (string, error) {
	if name == "" {
		return "", buildErr("drop", errors.New("empty table name"))
	}
	if c.dialect == Postgres {
		return "DROP TABLE IF EXISTS " + name + " CASCADE", nil
	}
	return "DROP TABLE IF EXISTS " + name, nil
}

// DropIndex renders DROP INDEX IF EXISTS for an already sanitized name.
func (c *Compiler) DropIndex(name string) (string, error) {
	if name == "" {
		return "", buildErr("drop", errors.New("empty index name"))
	}
	return "DROP INDEX IF EXISTS " + name, nil
}
