// Package escape turns native Go values into SQL literals.
//
// It is the only producer of literals for statements that carry no bound
// parameters (the batch insert path). Nothing else may splice caller input
// into SQL text.
package escape

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/4miners/shift/internal/namespace"
)

var (
	// ErrUnsupportedType is returned for values that have no literal form.
	ErrUnsupportedType = errors.New("unsupported data type")

	// ErrInvalidIdentifier is returned when an identifier contains characters
	// outside [A-Za-z0-9_] or starts with a digit.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Value returns the SQL literal for v.
//
//	string        'it''s'
//	nil           null
//	[]byte        X'00ff'
//	bool          1 / 0
//	numbers       decimal text, finite only
//	other objects JSON, quoted like a string
func Value(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(val), nil
	case []byte:
		if val == nil {
			return "null", nil
		}
		return "X'" + hex.EncodeToString(val) + "'", nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case json.Number:
		f, err := val.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: number %q", ErrUnsupportedType, val.String())
		}
		return val.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedType, f)
		}
		return strconv.FormatFloat(f, 'f', -1, rv.Type().Bits()), nil
	case reflect.String:
		return quote(rv.String()), nil
	case reflect.Bool:
		return Value(rv.Bool())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "null", nil
		}
		return Value(rv.Elem().Interface())
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "null", nil
		}
		return object(v)
	case reflect.Array, reflect.Struct:
		return object(v)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// Identifier returns name as a double-quoted SQL identifier. A dotted
// "table.column" reference is quoted per part.
func Identifier(name string) (string, error) {
	if !namespace.IsColumnRef(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, "."), nil
}

func object(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("%w: %T: %v", ErrUnsupportedType, v, err)
	}
	return quote(strings.TrimSuffix(buf.String(), "\n")), nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
