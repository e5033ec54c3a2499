package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it printed on
// stdout. Logs and verbose output are discarded.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFile writes content into a fresh file under the test's temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// sqliteFlags points a command at a fresh sqlite database.
func sqliteFlags(t *testing.T) []string {
	t.Helper()
	return []string{"--dialect", "sqlite3", "--dsn", filepath.Join(t.TempDir(), "dapps.db")}
}

const accountsSchema = `- table: accounts
  type: table
  tableFields:
    - name: id
      type: String
      length: 20
      primary_key: true
    - name: balance
      type: BigInt
      not_null: true
      default: 0
- table: accounts
  type: index
  name: accounts_balance
  indexOn: balance
`
