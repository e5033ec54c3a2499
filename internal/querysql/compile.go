package querysql

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/4miners/shift/internal/escape"
	"github.com/4miners/shift/internal/queryir"
)

// BuildError reports a query or definition that could not be turned into SQL.
// No statement reaches the database when building fails.
type BuildError struct {
	Op  string // select, insert, update, remove, create, index, batch, drop
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Op, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(op string, err error) error {
	return &BuildError{Op: op, Err: err}
}

// Compiler compiles queries and schema definitions to SQL for one dialect.
//
// Descriptor queries are parameterized: values are never interpolated and
// identifiers are validated then double-quoted.
type Compiler struct {
	dialect Dialect
	builder sq.StatementBuilderType
}

// NewCompiler creates a Compiler for the dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{
		dialect: d,
		builder: sq.StatementBuilder.PlaceholderFormat(d.placeholders()),
	}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect {
	return c.dialect
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *Compiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, buildErr("query", errors.New("cannot compile nil query"))
	}
	op := q.Action()
	if err := queryir.Validate(q); err != nil {
		return "", nil, buildErr(op, err)
	}

	qt := &quoter{}
	var stmt sq.Sqlizer
	var err error
	switch query := q.(type) {
	case *queryir.Select:
		stmt, err = c.compileSelect(qt, query)
	case *queryir.Insert:
		stmt, err = c.compileInsert(qt, query)
	case *queryir.Update:
		stmt, err = c.compileUpdate(qt, query)
	case *queryir.Remove:
		stmt, err = c.compileRemove(qt, query)
	default:
		err = fmt.Errorf("unsupported query type: %T", q)
	}
	if err == nil {
		err = qt.err
	}
	if err != nil {
		return "", nil, buildErr(op, err)
	}

	sql, args, err := stmt.ToSql()
	if err != nil {
		return "", nil, buildErr(op, err)
	}
	return sql, args, nil
}

func (c *Compiler) compileSelect(qt *quoter, q *queryir.Select) (sq.Sqlizer, error) {
	columns := []string{"*"}
	if len(q.Fields) > 0 {
		columns = make([]string, len(q.Fields))
		for i, f := range q.Fields {
			if f == "*" {
				columns[i] = f
			} else {
				columns[i] = qt.quote(f)
			}
		}
	}

	b := c.builder.Select(columns...).From(qt.table(q.Table, q.Alias))
	if q.Distinct {
		b = b.Distinct()
	}
	for _, j := range q.Joins {
		clause, err := joinClause(qt, j)
		if err != nil {
			return nil, err
		}
		b = b.JoinClause(clause)
	}
	if q.Condition != nil {
		where, err := compilePredicate(qt, q.Condition)
		if err != nil {
			return nil, fmt.Errorf("compile condition: %w", err)
		}
		b = b.Where(where)
	}
	if len(q.Group) > 0 {
		group := make([]string, len(q.Group))
		for i, g := range q.Group {
			group[i] = qt.quote(g)
		}
		b = b.GroupBy(group...)
	}
	for _, s := range q.Sort {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		b = b.OrderBy(qt.quote(s.Field) + " " + dir)
	}
	if q.Limit != nil {
		b = b.Limit(*q.Limit)
	}
	if q.Offset != nil {
		b = b.Offset(*q.Offset)
	}
	return b, nil
}

var joinKeywords = map[queryir.JoinType]string{
	queryir.JoinInner: "JOIN",
	queryir.JoinLeft:  "LEFT JOIN",
	queryir.JoinRight: "RIGHT JOIN",
	queryir.JoinFull:  "FULL JOIN",
	queryir.JoinCross: "CROSS JOIN",
}

// joinClause renders one join, e.g. LEFT JOIN "b" ON "a"."id" = "b"."a_id".
func joinClause(qt *quoter, j queryir.Join) (string, error) {
	kind := j.Type
	if kind == "" {
		kind = queryir.JoinInner
	}
	keyword, ok := joinKeywords[kind]
	if !ok {
		return "", fmt.Errorf("unsupported join type %q", j.Type)
	}

	clause := keyword + " " + qt.table(j.Table, j.Alias)
	if kind == queryir.JoinCross {
		return clause, nil
	}
	if len(j.On) == 0 {
		return "", fmt.Errorf("join on %q needs an on clause", j.Table)
	}
	conds := make([]string, len(j.On))
	for i, pair := range j.On {
		conds[i] = qt.quote(pair.Left) + " = " + qt.quote(pair.Right)
	}
	return clause + " ON " + strings.Join(conds, " AND "), nil
}

func (c *Compiler) compileInsert(qt *quoter, q *queryir.Insert) (sq.Sqlizer, error) {
	if len(q.Rows) == 0 {
		return nil, errors.New("insert has no rows")
	}
	if len(q.Joins) > 0 {
		return nil, errors.New("insert cannot join")
	}
	columns := make([]string, len(q.Columns))
	for i, col := range q.Columns {
		columns[i] = qt.quote(col)
	}
	b := c.builder.Insert(qt.quote(q.Table)).Columns(columns...)
	for _, row := range q.Rows {
		b = b.Values(row...)
	}
	return b, nil
}

func (c *Compiler) compileUpdate(qt *quoter, q *queryir.Update) (sq.Sqlizer, error) {
	if len(q.Joins) > 0 {
		return nil, errors.New("update cannot join")
	}
	b := c.builder.Update(qt.quote(q.Table))
	for _, a := range q.Modifier {
		col := qt.quote(a.Column)
		switch a.Op {
		case queryir.AssignSet:
			b = b.Set(col, a.Value)
		case queryir.AssignInc:
			b = b.Set(col, sq.Expr(col+" + ?", a.Value))
		case queryir.AssignDec:
			b = b.Set(col, sq.Expr(col+" - ?", a.Value))
		default:
			return nil, fmt.Errorf("unsupported assignment %q", a.Op)
		}
	}
	if q.Condition != nil {
		where, err := compilePredicate(qt, q.Condition)
		if err != nil {
			return nil, fmt.Errorf("compile condition: %w", err)
		}
		b = b.Where(where)
	}
	return b, nil
}

func (c *Compiler) compileRemove(qt *quoter, q *queryir.Remove) (sq.Sqlizer, error) {
	if len(q.Joins) > 0 {
		return nil, errors.New("remove cannot join")
	}
	b := c.builder.Delete(qt.quote(q.Table))
	if q.Condition != nil {
		where, err := compilePredicate(qt, q.Condition)
		if err != nil {
			return nil, fmt.Errorf("compile condition: %w", err)
		}
		b = b.Where(where)
	}
	return b, nil
}

// compilePredicate converts a predicate to a squirrel expression.
// Values are always placeholders.
func compilePredicate(qt *quoter, p queryir.Predicate) (sq.Sqlizer, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		col := qt.quote(pred.Field)
		switch pred.Op {
		case queryir.OpEq:
			return sq.Eq{col: pred.Value}, nil
		case queryir.OpNe:
			return sq.NotEq{col: pred.Value}, nil
		case queryir.OpGt:
			return sq.Gt{col: pred.Value}, nil
		case queryir.OpGte:
			return sq.GtOrEq{col: pred.Value}, nil
		case queryir.OpLt:
			return sq.Lt{col: pred.Value}, nil
		case queryir.OpLte:
			return sq.LtOrEq{col: pred.Value}, nil
		case queryir.OpLike:
			return sq.Like{col: pred.Value}, nil
		default:
			return nil, fmt.Errorf("unsupported operator %q", pred.Op)
		}
	case queryir.In:
		values := append([]any{}, pred.Values...)
		if pred.Negate {
			return sq.NotEq{qt.quote(pred.Field): values}, nil
		}
		return sq.Eq{qt.quote(pred.Field): values}, nil
	case queryir.IsNull:
		if pred.Negate {
			return sq.NotEq{qt.quote(pred.Field): nil}, nil
		}
		return sq.Eq{qt.quote(pred.Field): nil}, nil
	case queryir.And:
		and := sq.And{}
		for _, sub := range pred.Predicates {
			s, err := compilePredicate(qt, sub)
			if err != nil {
				return nil, err
			}
			and = append(and, s)
		}
		return and, nil
	case queryir.Or:
		or := sq.Or{}
		for _, sub := range pred.Predicates {
			s, err := compilePredicate(qt, sub)
			if err != nil {
				return nil, err
			}
			or = append(or, s)
		}
		return or, nil
	default:
		return nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// quoter quotes identifiers and keeps the first failure, so builders can
// quote inline and check once.
type quoter struct {
	err error
}

func (q *quoter) quote(name string) string {
	s, err := escape.Identifier(name)
	if err != nil && q.err == nil {
		q.err = err
	}
	return s
}

func (q *quoter) table(name, alias string) string {
	if alias == "" {
		return q.quote(name)
	}
	return q.quote(name) + " AS " + q.quote(alias)
}
