// Package schema describes the tables and indexes a dapp declares at install.
//
// Definitions arrive in install form (type "table" or "index"). Creating
// them translates each entry to its namespaced, applied form (type
// "create" or "index"), which is also what dropping them expects.
package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition types.
const (
	TypeTable  = "table"  // install form of a table
	TypeIndex  = "index"  // install and applied form of an index
	TypeCreate = "create" // applied form of a table
)

// Definition is one schema entry.
type Definition struct {
	Table       string       `json:"table" yaml:"table"`
	Type        string       `json:"type" yaml:"type"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Fields      []Field      `json:"tableFields,omitempty" yaml:"tableFields,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty" yaml:"foreignKeys,omitempty"`
	Columns     StringList   `json:"indexOn,omitempty" yaml:"indexOn,omitempty"`
	Unique      bool         `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Field is a table column.
type Field struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Length     int    `json:"length,omitempty" yaml:"length,omitempty"`
	NotNull    bool   `json:"not_null,omitempty" yaml:"not_null,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Unique     bool   `json:"unique,omitempty" yaml:"unique,omitempty"`
	Default    any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// ForeignKey references TableField of Table from the local Field.
type ForeignKey struct {
	Field      string `json:"field" yaml:"field"`
	Table      string `json:"table" yaml:"table"`
	TableField string `json:"table_field" yaml:"table_field"`
}

// Clone returns a deep copy of d, so callers' definitions are never mutated.
func (d Definition) Clone() Definition {
	c := d
	c.Fields = append([]Field(nil), d.Fields...)
	c.ForeignKeys = append([]ForeignKey(nil), d.ForeignKeys...)
	c.Columns = append(StringList(nil), d.Columns...)
	return c
}

// ObjectName is the name of the schema object the definition creates:
// the index name for named indexes, the table otherwise.
func (d Definition) ObjectName() string {
	if d.Type == TypeIndex && d.Name != "" {
		return d.Name
	}
	return d.Table
}

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*l = many
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}
