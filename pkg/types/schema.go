package types

import (
	"fmt"
	"strings"

	qerr "github.com/quickset/quickset/internal/errors"
)

// ColumnType is the declared type of a schema column.
type ColumnType uint8

const (
	ColumnInt ColumnType = iota
	ColumnString
)

// String returns the wire name of the column type.
func (t ColumnType) String() string {
	switch t {
	case ColumnInt:
		return "int"
	case ColumnString:
		return "string"
	default:
		return fmt.Sprintf("columntype(%d)", t)
	}
}

// Kind returns the value kind a column of this type holds.
func (t ColumnType) Kind() Kind {
	if t == ColumnInt {
		return KindInt
	}
	return KindString
}

// ParseColumnType parses a column type name. "int"/"integer" and
// "string"/"text" are accepted.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return ColumnInt, nil
	case "string", "text":
		return ColumnString, nil
	default:
		return 0, qerr.NewInvalidSchema(fmt.Sprintf("unknown column type %q", s))
	}
}

// MarshalJSON encodes the type by its wire name.
func (t ColumnType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes a column type from its wire name.
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseColumnType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Column is a named, typed position in a schema.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is an ordered list of columns. The first column is always the
// integer row identifier.
type Schema struct {
	columns []Column
	byName  map[string]int
}

// NewSchema validates and constructs a schema. The column list must be
// non-empty, names must be unique and non-empty, and the first column must be
// an integer (it serves as the row identifier).
func NewSchema(columns []Column) (*Schema, error) {
	if len(columns) == 0 {
		return nil, qerr.NewInvalidSchema("schema must have at least one column")
	}
	if columns[0].Type != ColumnInt {
		return nil, qerr.NewInvalidSchema(
			fmt.Sprintf("identifier column %q must be an integer", columns[0].Name))
	}

	byName := make(map[string]int, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, qerr.NewInvalidSchema(fmt.Sprintf("column %d has an empty name", i))
		}
		if _, dup := byName[col.Name]; dup {
			return nil, qerr.NewInvalidSchema(fmt.Sprintf("duplicate column name %q", col.Name))
		}
		byName[col.Name] = i
	}

	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Schema{columns: cols, byName: byName}, nil
}

// Columns returns the ordered column list.
func (s *Schema) Columns() []Column {
	return s.columns
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Column returns the column at position i.
func (s *Schema) Column(i int) Column {
	return s.columns[i]
}

// Index returns the position of the named column, or -1 if absent.
func (s *Schema) Index(name string) int {
	if i, ok := s.byName[name]; ok {
		return i
	}
	return -1
}

// IDColumn returns the identifier column (position 0).
func (s *Schema) IDColumn() Column {
	return s.columns[0]
}

// Validate checks a full row of values against the schema: the count must
// match and every value's kind must match its column's type.
func (s *Schema) Validate(values []Value) error {
	if len(values) != len(s.columns) {
		return qerr.New(qerr.ErrCategorySchema, qerr.CodeSchemaMismatch,
			fmt.Sprintf("expected %d values, got %d", len(s.columns), len(values))).
			WithDetails(map[string]interface{}{
				"expected": len(s.columns),
				"actual":   len(values),
			})
	}
	for i, v := range values {
		col := s.columns[i]
		if v.Kind() != col.Type.Kind() {
			return qerr.NewSchemaMismatch(col.Name, col.Type.String(), v.Kind().String())
		}
	}
	return nil
}
