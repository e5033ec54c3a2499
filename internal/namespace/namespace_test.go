package namespace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualify(t *testing.T) {
	for _, tc := range []struct {
		dappid, table, want string
	}{
		{"3", "mem_accounts", "dapp_3_mem_accounts"},
		{"7", "votes", "dapp_7_votes"},
		{"abc", "t", "dapp_abc_t"},
	} {
		assert.Equal(t, tc.want, Qualify(tc.dappid, tc.table))
	}
}

func TestQualify_NotIdempotent(t *testing.T) {
	once := Qualify("7", "votes")
	twice := Qualify("7", once)
	assert.Equal(t, "dapp_7_dapp_7_votes", twice)
}

func TestQualifyRef(t *testing.T) {
	assert.Equal(t, "dapp_1_a.id", QualifyRef("1", "a.id"))
	assert.Equal(t, "dapp_1_a", QualifyRef("1", "a"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "dapp_7_votesDROPTABLEx", Sanitize("dapp_7_votes; DROP TABLE x;--"))
	assert.Equal(t, "dapp_7_votes", Sanitize("dapp_7_votes"))
	assert.Equal(t, "", Sanitize(";--"))
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("votes"))
	assert.True(t, IsIdentifier("_x1"))
	assert.False(t, IsIdentifier("1x"))
	assert.False(t, IsIdentifier("a.b"))
	assert.False(t, IsIdentifier("a b"))
	assert.False(t, IsIdentifier(""))

	assert.True(t, IsColumnRef("a.b"))
	assert.True(t, IsColumnRef("b"))
	assert.False(t, IsColumnRef("a.b.c"))
	assert.False(t, IsColumnRef(`a"; --`))
}

func TestDappID(t *testing.T) {
	for _, in := range []any{"3", 3, int64(3), uint64(3), float64(3), json.Number("3")} {
		id, err := DappID(in)
		require.NoError(t, err, "%T", in)
		assert.Equal(t, "3", id)
	}

	for _, in := range []any{"", 3.5, nil, []int{1}} {
		_, err := DappID(in)
		assert.ErrorIs(t, err, ErrInvalidDappID, "%v", in)
	}
}
