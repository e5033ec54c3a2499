// Package namespace builds and checks the per-dapp table prefix.
//
// Every table and index a dapp owns is physically named
// "dapp_<dappid>_<name>". The prefix is part of the on-disk contract with
// existing databases and must not change.
package namespace

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	columnRefRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	nonWordRe    = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// ErrInvalidDappID is returned when a caller identifier is empty or not a scalar.
var ErrInvalidDappID = errors.New("invalid dapp id")

// Prefix returns the namespace prefix for a dapp: "dapp_<dappid>_".
func Prefix(dappid string) string {
	return "dapp_" + dappid + "_"
}

// Qualify prefixes name with the dapp namespace.
// It is not idempotent: qualifying an already qualified name prefixes it twice.
func Qualify(dappid, name string) string {
	return Prefix(dappid) + name
}

// QualifyRef qualifies the table component of a "table[.column]" reference
// and keeps the column component.
func QualifyRef(dappid, ref string) string {
	table, column, found := strings.Cut(ref, ".")
	if !found {
		return Qualify(dappid, table)
	}
	return Qualify(dappid, table) + "." + column
}

// Sanitize strips every character outside [A-Za-z0-9_].
func Sanitize(name string) string {
	return nonWordRe.ReplaceAllString(name, "")
}

// IsIdentifier reports whether s is a bare SQL identifier.
func IsIdentifier(s string) bool {
	return len(s) <= 128 && identifierRe.MatchString(s)
}

// IsColumnRef reports whether s is "column" or "table.column".
func IsColumnRef(s string) bool {
	return len(s) <= 257 && columnRefRe.MatchString(s)
}

// DappID normalises an opaque caller identifier to its string form.
// Strings and integral numbers are accepted.
func DappID(v any) (string, error) {
	var id string
	switch val := v.(type) {
	case string:
		id = val
	case json.Number:
		id = val.String()
	case int:
		id = strconv.Itoa(val)
	case int64:
		id = strconv.FormatInt(val, 10)
	case uint64:
		id = strconv.FormatUint(val, 10)
	case float64:
		if val != float64(int64(val)) {
			return "", fmt.Errorf("%w: %v", ErrInvalidDappID, val)
		}
		id = strconv.FormatInt(int64(val), 10)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidDappID, v)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDappID)
	}
	return id, nil
}
