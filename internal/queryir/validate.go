package queryir

import (
	"fmt"
	"strings"

	"github.com/4miners/shift/internal/namespace"
)

// ValidationError lists every identifier problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks that every identifier in q is safe to place in SQL text.
//
// Tables and aliases must be bare identifiers; column references may be
// "column" or "table.column". Values are never inspected here, they are
// always bound as parameters.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	if q == nil {
		return &ValidationError{Problems: []string{"nil query"}}
	}
	v := &validator{}
	v.validateSource(q.From())

	switch query := q.(type) {
	case *Select:
		for _, f := range query.Fields {
			if f != "*" {
				v.columnRef("field", f)
			}
		}
		for _, g := range query.Group {
			v.columnRef("group", g)
		}
		for _, s := range query.Sort {
			v.columnRef("sort", s.Field)
		}
		v.validatePredicate(query.Condition)
	case *Insert:
		if len(query.Columns) == 0 {
			v.addProblem("insert has no columns")
		}
		for _, c := range query.Columns {
			v.identifier("column", c)
		}
		for i, row := range query.Rows {
			if len(row) != len(query.Columns) {
				v.addProblem("row %d has %d values, want %d", i, len(row), len(query.Columns))
			}
		}
	case *Update:
		for _, a := range query.Modifier {
			v.identifier("column", a.Column)
			if a.Op != AssignSet && !isNumber(a.Value) {
				v.addProblem("%s on %q needs a number", a.Op, a.Column)
			}
		}
		v.validatePredicate(query.Condition)
	case *Remove:
		v.validatePredicate(query.Condition)
	default:
		v.addProblem("unsupported query type %T", q)
	}

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) identifier(what, name string) {
	if !namespace.IsIdentifier(name) {
		v.addProblem("invalid %s %q", what, name)
	}
}

func (v *validator) columnRef(what, ref string) {
	if !namespace.IsColumnRef(ref) {
		v.addProblem("invalid %s %q", what, ref)
	}
}

func (v *validator) validateSource(src *Source) {
	v.identifier("table", src.Table)
	if src.Alias != "" {
		v.identifier("alias", src.Alias)
	}
	for _, j := range src.Joins {
		v.identifier("join table", j.Table)
		if j.Alias != "" {
			v.identifier("join alias", j.Alias)
		}
		if j.Type == JoinCross && len(j.On) > 0 {
			v.addProblem("cross join on %q cannot have an on clause", j.Table)
		}
		for _, pair := range j.On {
			v.columnRef("join reference", pair.Left)
			v.columnRef("join reference", pair.Right)
		}
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Compare:
		v.columnRef("condition field", pred.Field)
	case In:
		v.columnRef("condition field", pred.Field)
	case IsNull:
		v.columnRef("condition field", pred.Field)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unsupported predicate type %T", p)
	}
}

func isNumber(x any) bool {
	switch x.(type) {
	case int64, float64, int:
		return true
	}
	return false
}
