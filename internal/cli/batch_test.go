package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchDryRunYAML(t *testing.T) {
	payload := writeFile(t, "rows.yaml", `table: accounts
fields:
  address: id
  amount: balance
values:
  - [a, 1]
  - [b, 2]
  - [c, 3]
`)

	out, err := execute(t, nil, "batch", "--dapp", "4", "--file", payload, "--batch-size", "2", "--dry-run", "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	stmts := resp.Data.(map[string]any)["statements"].([]any)
	assert.Len(t, stmts, 2)
	for _, stmt := range stmts {
		assert.Contains(t, stmt, `INSERT INTO "dapp_4_accounts" ("id","balance")`)
	}
}

func TestBatchInvalidPayload(t *testing.T) {
	payload := writeFile(t, "rows.json", `{"table": "accounts", "fields": {"a": "id"}, "values": [[1, 2]]}`)

	out, err := execute(t, nil, "batch", "--dapp", "4", "--file", payload, "--dry-run", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeDecode, decodeResponse(t, out).Error.Code)
}

func TestBatchInvalidBatchSize(t *testing.T) {
	payload := writeFile(t, "rows.json", `{"table": "accounts", "fields": {"a": "id"}, "values": [[1]]}`)

	_, err := execute(t, nil, "batch", "--dapp", "4", "--file", payload, "--batch-size", "-1", "--dry-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
