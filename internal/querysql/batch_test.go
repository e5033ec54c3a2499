package querysql

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4miners/shift/internal/escape"
)

func TestCompileBatch(t *testing.T) {
	sql, err := NewCompiler(Postgres).CompileBatch("dapp_1_t", []string{"a", "b"}, [][]any{
		{1, "x"},
		{2, "it's"},
		{nil, true},
	})
	require.NoError(t, err)
	newGolden(t).Assert(t, "batch_insert", []byte(sql))
}

func TestCompileBatch_OneSelectPerRow(t *testing.T) {
	rows := make([][]any, 10)
	for i := range rows {
		rows[i] = []any{i, "v"}
	}
	sql, err := NewCompiler(SQLite).CompileBatch("dapp_1_t", []string{"a", "b"}, rows)
	require.NoError(t, err)

	assert.Equal(t, 10, strings.Count(sql, "SELECT "))
	assert.Equal(t, 9, strings.Count(sql, " UNION "))
}

func TestCompileBatch_Errors(t *testing.T) {
	compiler := NewCompiler(Postgres)

	testCases := []struct {
		name    string
		table   string
		columns []string
		rows    [][]any
		target  error
	}{
		{"no rows", "t", []string{"a"}, nil, nil},
		{"no columns", "t", nil, [][]any{{1}}, nil},
		{"bad table", "t;--", []string{"a"}, [][]any{{1}}, escape.ErrInvalidIdentifier},
		{"quoted column", "t", []string{"'a'"}, [][]any{{1}}, escape.ErrInvalidIdentifier},
		{"dotted table", "dapp_3_x.y", []string{"a"}, [][]any{{1}}, escape.ErrInvalidIdentifier},
		{"dotted column", "t", []string{"b.c"}, [][]any{{1}}, escape.ErrInvalidIdentifier},
		{"arity", "t", []string{"a", "b"}, [][]any{{1}}, nil},
		{"unsupported value", "t", []string{"a"}, [][]any{{math.NaN()}}, escape.ErrUnsupportedType},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compiler.CompileBatch(tc.table, tc.columns, tc.rows)
			require.Error(t, err)
			var be *BuildError
			assert.ErrorAs(t, err, &be)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}
}
