package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/4miners/shift/internal/namespace"
	"github.com/4miners/shift/internal/queryir"
)

// Field maps a payload field name to the column it is stored in.
type Field struct {
	Name   string
	Column string
}

// OrderedFields is the batch "fields" mapping in document order.
// Row values line up with it positionally, so the order is significant.
type OrderedFields []Field

// Columns returns the target column names in order.
func (f OrderedFields) Columns() []string {
	cols := make([]string, len(f))
	for i, field := range f {
		cols[i] = field.Column
	}
	return cols
}

// UnmarshalJSON reads a JSON object of name to column strings.
func (f *OrderedFields) UnmarshalJSON(data []byte) error {
	members, err := queryir.Members(data)
	if err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	out := make(OrderedFields, 0, len(members))
	for _, m := range members {
		var column string
		if err := json.Unmarshal(m.Value, &column); err != nil {
			return fmt.Errorf("fields.%s: column must be a string", m.Key)
		}
		out = append(out, Field{Name: m.Key, Column: column})
	}
	*f = out
	return nil
}

// UnmarshalYAML reads a YAML mapping of name to column strings.
func (f *OrderedFields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("fields: expected mapping at line %d", node.Line)
	}
	out := make(OrderedFields, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("fields.%s: column must be a string", key.Value)
		}
		out = append(out, Field{Name: key.Value, Column: val.Value})
	}
	*f = out
	return nil
}

// BatchPayload is a multi-row insert into one dapp table.
type BatchPayload struct {
	DappID string        `json:"dappid" yaml:"dappid"`
	Table  string        `json:"table" yaml:"table"`
	Fields OrderedFields `json:"fields" yaml:"fields"`
	Values [][]any       `json:"values" yaml:"values"`
}

// DecodeBatch parses a JSON batch body. Numbers keep their literal text and
// object or array cells are kept as the JSON text the dapp sent, the same
// way a single insert stores them.
func DecodeBatch(body []byte) (BatchPayload, error) {
	var raw struct {
		DappID string              `json:"dappid"`
		Table  string              `json:"table"`
		Fields OrderedFields       `json:"fields"`
		Values [][]json.RawMessage `json:"values"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return BatchPayload{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return BatchPayload{}, fmt.Errorf("%w: unexpected data after payload", ErrInvalidBatch)
	}

	p := BatchPayload{DappID: raw.DappID, Table: raw.Table, Fields: raw.Fields}
	if raw.Values != nil {
		p.Values = make([][]any, len(raw.Values))
	}
	for i, row := range raw.Values {
		p.Values[i] = make([]any, len(row))
		for j, cell := range row {
			v, err := batchCell(cell)
			if err != nil {
				return BatchPayload{}, fmt.Errorf("%w: values[%d][%d]: %v", ErrInvalidBatch, i, j, err)
			}
			p.Values[i][j] = v
		}
	}
	return p, nil
}

// batchCell decodes one row value. Objects and arrays stay JSON text.
func batchCell(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		return string(raw), nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeBatchYAML parses a YAML batch document.
func DecodeBatchYAML(data []byte) (BatchPayload, error) {
	var p BatchPayload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return BatchPayload{}, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return p, nil
}

// Batch inserts p.Values into the dapp's table in chunks of the configured
// batch size.
//
// Every row is checked and every chunk statement is built before the first
// one runs. Chunks run strictly in order; the first failure stops the batch
// and earlier chunks stay applied. The caller's Values are not modified.
func (g *Gateway) Batch(ctx context.Context, p BatchPayload) (Result, error) {
	stmts, err := g.PlanBatch(p)
	if err != nil {
		return Result{}, err
	}

	var total int64
	for i, stmt := range stmts {
		ack, err := g.db.Exec(ctx, stmt)
		if err != nil {
			return Result{RowsAffected: total}, g.fail(ErrQuery, "batch", p.DappID, stmt, err)
		}
		total += ack.RowsAffected
		g.logger.Debug("batch chunk applied",
			"dappid", p.DappID,
			"table", p.Table,
			"chunk", i+1,
			"chunks", len(stmts),
		)
	}
	return Result{RowsAffected: total}, nil
}

// PlanBatch checks p and builds the chunk statements Batch would run.
// An empty Values yields no statements.
func (g *Gateway) PlanBatch(p BatchPayload) ([]string, error) {
	if p.DappID == "" {
		return nil, fmt.Errorf("batch: %w", namespace.ErrInvalidDappID)
	}
	if len(p.Values) == 0 {
		return nil, nil
	}
	if p.Table == "" {
		return nil, fmt.Errorf("%w: missing table", ErrInvalidBatch)
	}

	columns := p.Fields.Columns()
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidBatch)
	}
	for i, row := range p.Values {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d",
				ErrInvalidBatch, i, len(row), len(columns))
		}
	}

	return g.batchStatements(namespace.Qualify(p.DappID, p.Table), columns, p.Values)
}

// batchStatements slices rows into chunks without copying them.
func (g *Gateway) batchStatements(table string, columns []string, rows [][]any) ([]string, error) {
	stmts := make([]string, 0, (len(rows)+g.batchSize-1)/g.batchSize)
	for start := 0; start < len(rows); start += g.batchSize {
		end := min(start+g.batchSize, len(rows))
		stmt, err := g.compiler.CompileBatch(table, columns, rows[start:end])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}
