package gateway

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4miners/shift/internal/queryir"
	"github.com/4miners/shift/internal/querysql"
	"github.com/4miners/shift/internal/schema"
	"github.com/4miners/shift/internal/store"
)

// TestSQLite_Lifecycle drives a dapp through install, writes, reads and
// uninstall against a real database file.
func TestSQLite_Lifecycle(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(ctx, querysql.SQLite, filepath.Join(t.TempDir(), "dapps.db"))
	require.NoError(t, err)
	defer st.Close()

	gw := New(st,
		WithDialect(querysql.SQLite),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBatchSize(2),
	)
	gw.MarkReady()

	applied, err := gw.CreateTables(ctx, "9", []schema.Definition{
		{Table: "accounts", Type: schema.TypeTable, Fields: []schema.Field{
			{Name: "id", Type: "String", Length: 20, PrimaryKey: true},
			{Name: "balance", Type: "BigInt", NotNull: true, Default: 0},
		}},
		{Table: "accounts", Type: schema.TypeIndex, Name: "accounts_balance", Columns: schema.StringList{"balance"}},
	})
	require.NoError(t, err)

	res, err := gw.Batch(ctx, BatchPayload{
		DappID: "9",
		Table:  "accounts",
		Fields: OrderedFields{{Name: "address", Column: "id"}, {Name: "amount", Column: "balance"}},
		Values: [][]any{{"a", 10}, {"b", 20}, {"c", 30}, {"it's", 40}, {"e", 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.RowsAffected)

	res, err = gw.Query(ctx, queryir.ActionUpdate, Request{DappID: "9", Body: []byte(
		`{"table": "accounts", "modifier": {"$inc": {"balance": 5}}, "condition": {"id": "a"}}`)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	res, err = gw.Query(ctx, queryir.ActionSelect, Request{DappID: "9", Body: []byte(`{
		"table": "accounts",
		"fields": ["id", "balance"],
		"condition": {"balance": {"$lte": 20}},
		"sort": "id"
	}`)})
	require.NoError(t, err)
	assert.Equal(t, []store.Row{
		{"id": "a", "balance": int64(15)},
		{"id": "b", "balance": int64(20)},
	}, res.Rows)

	res, err = gw.Query(ctx, queryir.ActionSelect, Request{DappID: "9", Body: []byte(
		`{"table": "accounts", "condition": {"id": "it's"}}`)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	// Another dapp cannot see dapp 9's table.
	_, err = gw.Query(ctx, queryir.ActionSelect, Request{DappID: "10", Body: []byte(`{"table": "accounts"}`)})
	assert.ErrorIs(t, err, ErrQuery)

	require.NoError(t, gw.DropTables(ctx, "9", applied))

	_, err = gw.Query(ctx, queryir.ActionSelect, Request{DappID: "9", Body: []byte(`{"table": "accounts"}`)})
	assert.ErrorIs(t, err, ErrQuery)
}
