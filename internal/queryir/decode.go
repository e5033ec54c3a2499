package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DecodeError reports a descriptor whose shape cannot be turned into a query.
type DecodeError struct {
	Field   string // descriptor key at fault, empty for the whole body
	Message string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "malformed descriptor: " + e.Message
	}
	return fmt.Sprintf("malformed descriptor: %s: %s", e.Field, e.Message)
}

func decodeErr(field, format string, args ...any) error {
	return &DecodeError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Decode builds the query for action from a JSON descriptor body.
//
// The action always wins over a "type" key present in the body. Keys the
// action does not use are ignored.
func Decode(action string, body json.RawMessage) (Query, error) {
	members, err := Members(body)
	if err != nil {
		return nil, &DecodeError{Message: err.Error()}
	}
	fields := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		fields[m.Key] = m.Value
	}

	src, err := decodeSource(fields)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionSelect:
		return decodeSelect(src, fields)
	case ActionInsert:
		return decodeInsert(src, fields)
	case ActionUpdate:
		return decodeUpdate(src, fields)
	case ActionRemove:
		cond, err := decodeCondition(fields["condition"])
		if err != nil {
			return nil, err
		}
		return &Remove{Source: src, Condition: cond}, nil
	default:
		return nil, decodeErr("type", "unknown action %q", action)
	}
}

func decodeSource(fields map[string]json.RawMessage) (Source, error) {
	var src Source

	table, err := optString(fields, "table")
	if err != nil {
		return src, err
	}
	if table == "" {
		return src, decodeErr("table", "required")
	}
	src.Table = table

	if src.Alias, err = optString(fields, "alias"); err != nil {
		return src, err
	}

	raw, ok := fields["join"]
	if !ok || isNull(raw) {
		return src, nil
	}
	switch kindOf(raw) {
	case "object":
		members, err := Members(raw)
		if err != nil {
			return src, decodeErr("join", "%v", err)
		}
		for _, m := range members {
			j, err := decodeJoin(m.Key, m.Value, true)
			if err != nil {
				return src, err
			}
			src.Joins = append(src.Joins, j)
		}
	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return src, decodeErr("join", "%v", err)
		}
		for _, item := range items {
			j, err := decodeJoin("", item, false)
			if err != nil {
				return src, err
			}
			src.Joins = append(src.Joins, j)
		}
	default:
		return src, decodeErr("join", "expected object or array, got %s", kindOf(raw))
	}
	return src, nil
}

func decodeJoin(table string, raw json.RawMessage, keyed bool) (Join, error) {
	j := Join{Table: table, Type: JoinInner, Keyed: keyed}

	members, err := Members(raw)
	if err != nil {
		return j, decodeErr("join", "%v", err)
	}
	spec := make(map[string]json.RawMessage, len(members))
	for _, m := range members {
		spec[m.Key] = m.Value
	}

	if !keyed {
		if j.Table, err = optString(spec, "table"); err != nil {
			return j, err
		}
		if j.Table == "" {
			return j, decodeErr("join.table", "required")
		}
	}
	if j.Alias, err = optString(spec, "alias"); err != nil {
		return j, err
	}

	kind, err := optString(spec, "type")
	if err != nil {
		return j, err
	}
	switch t := JoinType(strings.ToLower(kind)); t {
	case "":
	case JoinInner, JoinLeft, JoinRight, JoinFull, JoinCross:
		j.Type = t
	default:
		return j, decodeErr("join.type", "unknown join type %q", kind)
	}

	onRaw, ok := spec["on"]
	if !ok || isNull(onRaw) {
		return j, nil
	}
	on, err := Members(onRaw)
	if err != nil {
		return j, decodeErr("join.on", "%v", err)
	}
	for _, m := range on {
		var right string
		if err := json.Unmarshal(m.Value, &right); err != nil {
			return j, decodeErr("join.on", "value for %q must be a column reference", m.Key)
		}
		j.On = append(j.On, OnPair{Left: m.Key, Right: right})
	}
	return j, nil
}

func decodeSelect(src Source, fields map[string]json.RawMessage) (*Select, error) {
	s := &Select{Source: src}
	var err error

	if s.Fields, err = optStrings(fields, "fields"); err != nil {
		return nil, err
	}
	if raw, ok := fields["distinct"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &s.Distinct); err != nil {
			return nil, decodeErr("distinct", "expected boolean")
		}
	}
	if s.Condition, err = decodeCondition(fields["condition"]); err != nil {
		return nil, err
	}
	if s.Group, err = optStrings(fields, "group"); err != nil {
		return nil, err
	}
	if s.Sort, err = decodeSort(fields["sort"]); err != nil {
		return nil, err
	}
	if s.Limit, err = optUint(fields, "limit"); err != nil {
		return nil, err
	}
	if s.Offset, err = optUint(fields, "offset"); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeSort(raw json.RawMessage) ([]SortKey, error) {
	if raw == nil || isNull(raw) {
		return nil, nil
	}
	switch kindOf(raw) {
	case "string", "array":
		names, err := stringOrStrings("sort", raw)
		if err != nil {
			return nil, err
		}
		keys := make([]SortKey, len(names))
		for i, n := range names {
			keys[i] = SortKey{Field: n}
		}
		return keys, nil
	case "object":
		members, err := Members(raw)
		if err != nil {
			return nil, decodeErr("sort", "%v", err)
		}
		keys := make([]SortKey, 0, len(members))
		for _, m := range members {
			desc, err := sortDirection(m)
			if err != nil {
				return nil, err
			}
			keys = append(keys, SortKey{Field: m.Key, Desc: desc})
		}
		return keys, nil
	default:
		return nil, decodeErr("sort", "expected string, array or object, got %s", kindOf(raw))
	}
}

func sortDirection(m Member) (bool, error) {
	var v any
	if err := unmarshal(m.Value, &v); err != nil {
		return false, decodeErr("sort", "%v", err)
	}
	switch dir := v.(type) {
	case json.Number:
		n, err := dir.Int64()
		if err == nil && (n == 1 || n == -1) {
			return n == -1, nil
		}
	case string:
		switch strings.ToLower(dir) {
		case "asc":
			return false, nil
		case "desc":
			return true, nil
		}
	}
	return false, decodeErr("sort", "invalid direction for %q", m.Key)
}

func decodeInsert(src Source, fields map[string]json.RawMessage) (*Insert, error) {
	raw, ok := fields["values"]
	if !ok || isNull(raw) {
		return nil, decodeErr("values", "required")
	}

	var rows []json.RawMessage
	switch kindOf(raw) {
	case "object":
		rows = []json.RawMessage{raw}
	case "array":
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, decodeErr("values", "%v", err)
		}
	default:
		return nil, decodeErr("values", "expected object or array, got %s", kindOf(raw))
	}
	if len(rows) == 0 {
		return nil, decodeErr("values", "no rows")
	}

	ins := &Insert{Source: src}
	index := map[string]int{}
	for n, rowRaw := range rows {
		members, err := Members(rowRaw)
		if err != nil {
			return nil, decodeErr("values", "row %d: %v", n, err)
		}
		if n == 0 {
			for _, m := range members {
				if _, dup := index[m.Key]; dup {
					continue
				}
				index[m.Key] = len(ins.Columns)
				ins.Columns = append(ins.Columns, m.Key)
			}
		}
		if len(members) != len(ins.Columns) {
			return nil, decodeErr("values", "row %d has %d columns, want %d", n, len(members), len(ins.Columns))
		}
		row := make([]any, len(ins.Columns))
		for _, m := range members {
			i, ok := index[m.Key]
			if !ok {
				return nil, decodeErr("values", "row %d has unexpected column %q", n, m.Key)
			}
			v, err := decodeValue(m.Value)
			if err != nil {
				return nil, decodeErr("values", "row %d column %q: %v", n, m.Key, err)
			}
			row[i] = v
		}
		ins.Rows = append(ins.Rows, row)
	}
	return ins, nil
}

func decodeUpdate(src Source, fields map[string]json.RawMessage) (*Update, error) {
	raw, ok := fields["modifier"]
	if !ok || isNull(raw) {
		return nil, decodeErr("modifier", "required")
	}
	members, err := Members(raw)
	if err != nil {
		return nil, decodeErr("modifier", "%v", err)
	}

	u := &Update{Source: src}
	for _, m := range members {
		op := AssignSet
		switch m.Key {
		case "$set":
		case "$inc":
			op = AssignInc
		case "$dec":
			op = AssignDec
		default:
			if strings.HasPrefix(m.Key, "$") {
				return nil, decodeErr("modifier", "unknown operator %q", m.Key)
			}
			v, err := decodeValue(m.Value)
			if err != nil {
				return nil, decodeErr("modifier", "%q: %v", m.Key, err)
			}
			u.Modifier = append(u.Modifier, Assignment{Column: m.Key, Op: AssignSet, Value: v})
			continue
		}

		inner, err := Members(m.Value)
		if err != nil {
			return nil, decodeErr("modifier", "%s: %v", m.Key, err)
		}
		for _, im := range inner {
			v, err := decodeValue(im.Value)
			if err != nil {
				return nil, decodeErr("modifier", "%s %q: %v", m.Key, im.Key, err)
			}
			u.Modifier = append(u.Modifier, Assignment{Column: im.Key, Op: op, Value: v})
		}
	}
	if len(u.Modifier) == 0 {
		return nil, decodeErr("modifier", "no columns to update")
	}

	if u.Condition, err = decodeCondition(fields["condition"]); err != nil {
		return nil, err
	}
	return u, nil
}

func decodeCondition(raw json.RawMessage) (Predicate, error) {
	if raw == nil || isNull(raw) {
		return nil, nil
	}
	var v any
	if err := unmarshal(raw, &v); err != nil {
		return nil, decodeErr("condition", "%v", err)
	}
	return predicate(v)
}

func predicate(v any) (Predicate, error) {
	switch c := v.(type) {
	case map[string]any:
		var preds []Predicate
		for _, key := range sortedKeys(c) {
			switch key {
			case "$and", "$or":
				items, ok := c[key].([]any)
				if !ok {
					return nil, decodeErr("condition", "%s expects an array", key)
				}
				var sub []Predicate
				for _, item := range items {
					p, err := predicate(item)
					if err != nil {
						return nil, err
					}
					sub = append(sub, p)
				}
				if key == "$or" {
					preds = append(preds, Or{Predicates: sub})
				} else {
					preds = append(preds, And{Predicates: sub})
				}
			default:
				if strings.HasPrefix(key, "$") {
					return nil, decodeErr("condition", "unknown operator %q", key)
				}
				p, err := fieldPredicate(key, c[key])
				if err != nil {
					return nil, err
				}
				preds = append(preds, p)
			}
		}
		if len(preds) == 1 {
			return preds[0], nil
		}
		return And{Predicates: preds}, nil
	case []any:
		var preds []Predicate
		for _, item := range c {
			p, err := predicate(item)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		return And{Predicates: preds}, nil
	default:
		return nil, decodeErr("condition", "expected object or array, got %T", v)
	}
}

func fieldPredicate(field string, v any) (Predicate, error) {
	switch val := v.(type) {
	case nil:
		return IsNull{Field: field}, nil
	case []any:
		values, err := scalars(field, val)
		if err != nil {
			return nil, err
		}
		return In{Field: field, Values: values}, nil
	case map[string]any:
		var preds []Predicate
		for _, op := range sortedKeys(val) {
			p, err := operatorPredicate(field, op, val[op])
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		if len(preds) == 1 {
			return preds[0], nil
		}
		return And{Predicates: preds}, nil
	default:
		s, err := scalar(field, val)
		if err != nil {
			return nil, err
		}
		return Compare{Field: field, Op: OpEq, Value: s}, nil
	}
}

var compareOps = map[string]Operator{
	"$eq":   OpEq,
	"$ne":   OpNe,
	"$gt":   OpGt,
	"$gte":  OpGte,
	"$lt":   OpLt,
	"$lte":  OpLte,
	"$like": OpLike,
}

func operatorPredicate(field, op string, v any) (Predicate, error) {
	switch op {
	case "$in", "$nin":
		items, ok := v.([]any)
		if !ok {
			return nil, decodeErr("condition", "%s on %q expects an array", op, field)
		}
		values, err := scalars(field, items)
		if err != nil {
			return nil, err
		}
		return In{Field: field, Values: values, Negate: op == "$nin"}, nil
	case "$null":
		isNull, ok := v.(bool)
		if !ok {
			return nil, decodeErr("condition", "$null on %q expects a boolean", field)
		}
		return IsNull{Field: field, Negate: !isNull}, nil
	}

	cmp, ok := compareOps[op]
	if !ok {
		return nil, decodeErr("condition", "unknown operator %q on %q", op, field)
	}
	if v == nil {
		switch cmp {
		case OpEq:
			return IsNull{Field: field}, nil
		case OpNe:
			return IsNull{Field: field, Negate: true}, nil
		}
	}
	s, err := scalar(field, v)
	if err != nil {
		return nil, err
	}
	return Compare{Field: field, Op: cmp, Value: s}, nil
}

func scalars(field string, items []any) ([]any, error) {
	values := make([]any, len(items))
	for i, item := range items {
		s, err := scalar(field, item)
		if err != nil {
			return nil, err
		}
		values[i] = s
	}
	return values, nil
}

func scalar(field string, v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		return number(val), nil
	case string, bool:
		return val, nil
	default:
		return nil, decodeErr("condition", "value for %q must be a scalar, got %T", field, v)
	}
}

// decodeValue decodes an insert/update value. Objects and arrays are
// stored as their JSON text.
func decodeValue(raw json.RawMessage) (any, error) {
	var v any
	if err := unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case json.Number:
		return number(val), nil
	case map[string]any, []any:
		return string(bytes.TrimSpace(raw)), nil
	default:
		return val, nil
	}
}

// number prefers int64 and falls back to float64.
func number(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isNull(raw json.RawMessage) bool {
	return kindOf(raw) == "null"
}

func optString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", decodeErr(key, "expected string, got %s", kindOf(raw))
	}
	return s, nil
}

func optStrings(fields map[string]json.RawMessage, key string) ([]string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	return stringOrStrings(key, raw)
}

func stringOrStrings(key string, raw json.RawMessage) ([]string, error) {
	if kindOf(raw) == "string" {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, decodeErr(key, "%v", err)
		}
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, decodeErr(key, "expected string or array of strings")
	}
	return list, nil
}

func optUint(fields map[string]json.RawMessage, key string) (*uint64, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, decodeErr(key, "expected non-negative integer")
	}
	return &n, nil
}
