package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4miners/shift/internal/namespace"
	"github.com/4miners/shift/internal/queryir"
	"github.com/4miners/shift/internal/querysql"
	"github.com/4miners/shift/internal/store"
)

// syncBuffer lets the log handler and the test share one buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	gw   *Gateway
	mock sqlmock.Sqlmock
	logs *syncBuffer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logs := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	base := []Option{
		WithLogger(logger),
		WithDialect(querysql.Postgres),
		WithRefGenerator(NewFixedGenerator("ref-1", "ref-2", "ref-3")),
	}
	gw := New(store.New(db, querysql.Postgres), append(base, opts...)...)
	return &fixture{gw: gw, mock: mock, logs: logs}
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func req(dappid, body string) Request {
	return Request{DappID: dappid, Body: json.RawMessage(body)}
}

func TestNew_Defaults(t *testing.T) {
	g := New(nil)
	assert.Equal(t, querysql.Postgres, g.Dialect())
	assert.Equal(t, DefaultBatchSize, g.batchSize)
	assert.False(t, g.Ready())

	g = New(nil, WithBatchSize(0), WithDialect(querysql.SQLite), WithLogger(nil), WithRefGenerator(nil))
	assert.Equal(t, DefaultBatchSize, g.batchSize)
	assert.Equal(t, querysql.SQLite, g.Dialect())
	assert.NotNil(t, g.logger)
	assert.NotNil(t, g.refs)
}

func TestMarkReady(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.gw.Ready())

	f.gw.MarkReady()
	f.gw.MarkReady()
	assert.True(t, f.gw.Ready())
	assert.Equal(t, 1, bytes.Count([]byte(f.logs.String()), []byte("sql gateway ready")))
}

func TestQuery_SelectTargetsNamespacedTable(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectQuery(`SELECT * FROM "dapp_3_mem_accounts"`).
		WillReturnRows(sqlmock.NewRows([]string{"address", "balance"}).
			AddRow("abc", int64(10)).
			AddRow("def", int64(0)))

	res, err := f.gw.Query(context.Background(), queryir.ActionSelect, req("3", `{"table": "mem_accounts"}`))
	require.NoError(t, err)

	assert.Equal(t, []store.Row{
		{"address": "abc", "balance": int64(10)},
		{"address": "def", "balance": int64(0)},
	}, res.Rows)
	f.verify(t)
}

func TestQuery_InsertReportsAcknowledgement(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`INSERT INTO "dapp_2_blocks" ("id","height") VALUES ($1,$2)`).
		WithArgs("a", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := f.gw.Query(context.Background(), queryir.ActionInsert,
		req("2", `{"table": "blocks", "values": {"id": "a", "height": 1}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Nil(t, res.Rows)
	f.verify(t)
}

func TestQuery_UpdateAndRemove(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`UPDATE "dapp_2_accounts" SET "balance" = "balance" - $1 WHERE "id" = $2`).
		WithArgs(int64(3), "x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`DELETE FROM "dapp_2_accounts" WHERE "balance" = $1`).
		WithArgs(int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	ctx := context.Background()
	res, err := f.gw.Query(ctx, queryir.ActionUpdate,
		req("2", `{"table": "accounts", "modifier": {"$dec": {"balance": 3}}, "condition": {"id": "x"}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	res, err = f.gw.Query(ctx, queryir.ActionRemove,
		req("2", `{"table": "accounts", "condition": {"balance": 0}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.RowsAffected)
	f.verify(t)
}

func TestQuery_ActionWinsOverBodyType(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectQuery(`SELECT * FROM "dapp_1_t"`).
		WillReturnRows(sqlmock.NewRows([]string{"a"}))

	_, err := f.gw.Query(context.Background(), queryir.ActionSelect,
		req("1", `{"type": "remove", "table": "t", "dappid": "9"}`))
	require.NoError(t, err)
	f.verify(t)
}

func TestQuery_ExecutionErrorIsGeneric(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectQuery(`SELECT * FROM "dapp_3_mem_accounts"`).
		WillReturnError(errors.New(`relation "dapp_3_mem_accounts" does not exist`))

	_, err := f.gw.Query(context.Background(), queryir.ActionSelect, req("3", `{"table": "mem_accounts"}`))
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrQuery)
	assert.Equal(t, "Sql#query error (ref=ref-1)", err.Error())
	assert.NotContains(t, err.Error(), "does not exist")
	assert.True(t, IsExecutionError(err))
	assert.False(t, IsBuildError(err))

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "select", ge.Op)
	assert.Equal(t, "ref-1", ge.Ref)

	logs := f.logs.String()
	assert.Contains(t, logs, "does not exist")
	assert.Contains(t, logs, `"ref":"ref-1"`)
	assert.Contains(t, logs, `"dappid":"3"`)
	f.verify(t)
}

func TestQuery_BuildErrorsNeverReachDatabase(t *testing.T) {
	testCases := []struct {
		name   string
		action string
		body   string
	}{
		{"not an object", queryir.ActionSelect, `[1]`},
		{"unknown action", "truncate", `{"table": "t"}`},
		{"injected table", queryir.ActionSelect, `{"table": "t; DROP TABLE x"}`},
		{"injected field", queryir.ActionSelect, `{"table": "t", "fields": ["a) --"]}`},
		{"bad operator", queryir.ActionRemove, `{"table": "t", "condition": {"a": {"$regex": "x"}}}`},
		{"insert without values", queryir.ActionInsert, `{"table": "t"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.gw.Query(context.Background(), tc.action, req("1", tc.body))
			require.Error(t, err)
			assert.True(t, IsBuildError(err), "got %v", err)
			assert.False(t, IsExecutionError(err))
			f.verify(t)
		})
	}
}

func TestQuery_MissingDappID(t *testing.T) {
	f := newFixture(t)

	_, err := f.gw.Query(context.Background(), queryir.ActionSelect, req("", `{"table": "t"}`))
	assert.ErrorIs(t, err, namespace.ErrInvalidDappID)
	f.verify(t)
}

func TestQuery_AliasedJoinIsLogged(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectQuery(`SELECT * FROM "dapp_1_t" JOIN "dapp_1_u" AS "x" ON "x"."id" = "t"."uid"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := f.gw.Query(context.Background(), queryir.ActionSelect,
		req("1", `{"table": "t", "join": [{"table": "u", "alias": "x", "on": {"x.id": "t.uid"}}]}`))
	require.NoError(t, err)

	assert.Contains(t, f.logs.String(), "aliased join references left unqualified")
	assert.Contains(t, f.logs.String(), `"tables":["dapp_1_t","dapp_1_u"]`)
	f.verify(t)
}

func TestCompile_DryRun(t *testing.T) {
	f := newFixture(t)

	sql, params, err := f.gw.Compile(queryir.ActionSelect, req("3", `{"table": "accounts", "condition": {"id": 1}}`))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "dapp_3_accounts" WHERE "id" = $1`, sql)
	assert.Equal(t, []any{int64(1)}, params)
	f.verify(t)
}
