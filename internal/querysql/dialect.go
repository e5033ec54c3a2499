package querysql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect names a SQL dialect. The values double as database/sql driver names.
type Dialect string

// Supported dialects.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// ParseDialect accepts a dialect or driver name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", s)
	}
}

func (d Dialect) placeholders() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// columnType maps a definition field type to the dialect's column type.
// Names are matched case-insensitively.
func (d Dialect) columnType(typ string, length int) (string, error) {
	switch strings.ToLower(typ) {
	case "string", "varchar":
		if length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", length), nil
		}
		return "VARCHAR", nil
	case "text":
		return "TEXT", nil
	case "number", "integer", "int":
		return "INT", nil
	case "smallint":
		return "SMALLINT", nil
	case "bigint":
		return "BIGINT", nil
	case "float", "double":
		if d == Postgres {
			return "DOUBLE PRECISION", nil
		}
		return "REAL", nil
	case "boolean", "bool":
		return "BOOLEAN", nil
	case "binary", "bytea", "blob":
		if d == Postgres {
			return "BYTEA", nil
		}
		return "BLOB", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", typ)
	}
}
