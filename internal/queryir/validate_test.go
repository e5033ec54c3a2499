package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	q := decode(t, ActionSelect, `{
		"table": "accounts",
		"fields": ["*", "accounts.id"],
		"join": {"b": {"on": {"accounts.id": "b.id"}}},
		"condition": {"$or": [{"id": 1}, {"name": {"$like": "a%"}}]},
		"sort": "id"
	}`)
	Rewrite(q, "1")
	assert.NoError(t, Validate(q))
}

func TestValidate_Problems(t *testing.T) {
	testCases := []struct {
		name  string
		query Query
	}{
		{"nil", nil},
		{"table injection", &Select{Source: Source{Table: "t; DROP TABLE x"}}},
		{"bad alias", &Select{Source: Source{Table: "t", Alias: "a b"}}},
		{"bad field", &Select{Source: Source{Table: "t"}, Fields: []string{"count(*)"}}},
		{"bad sort", &Select{Source: Source{Table: "t"}, Sort: []SortKey{{Field: "a--"}}}},
		{"bad condition field", &Remove{Source: Source{Table: "t"}, Condition: Or{Predicates: []Predicate{
			IsNull{Field: "a.b.c"},
		}}}},
		{"bad join ref", &Select{Source: Source{Table: "t", Joins: []Join{{
			Table: "u", On: []OnPair{{Left: "t.id", Right: "u.id OR 1=1"}},
		}}}}},
		{"cross join with on", &Select{Source: Source{Table: "t", Joins: []Join{{
			Table: "u", Type: JoinCross, On: []OnPair{{Left: "t.id", Right: "u.id"}},
		}}}}},
		{"insert without columns", &Insert{Source: Source{Table: "t"}}},
		{"insert arity", &Insert{Source: Source{Table: "t"}, Columns: []string{"a"}, Rows: [][]any{{1, 2}}}},
		{"update qualified column", &Update{Source: Source{Table: "t"}, Modifier: []Assignment{
			{Column: "t.a", Op: AssignSet, Value: 1},
		}}},
		{"inc needs number", &Update{Source: Source{Table: "t"}, Modifier: []Assignment{
			{Column: "a", Op: AssignInc, Value: "x"},
		}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.query)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Problems)
		})
	}
}
