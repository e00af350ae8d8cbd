// Package types provides the core data types shared across quickset.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	// KindInt is a 64-bit signed integer cell.
	KindInt Kind = iota
	// KindString is a UTF-8 string cell.
	KindString
)

// String returns the wire name of the kind ("int" or "string").
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Value is a single typed table cell. Every cell is mandatory; there is no
// null value.
type Value struct {
	kind Kind
	i    int64
	s    string
}

// IntValue returns an integer Value.
func IntValue(v int64) Value {
	return Value{kind: KindInt, i: v}
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, s: s}
}

// Kind returns the value's type.
func (v Value) Kind() Kind {
	return v.kind
}

// Int returns the integer payload. Valid only when Kind() == KindInt.
func (v Value) Int() int64 {
	return v.i
}

// Str returns the string payload. Valid only when Kind() == KindString.
func (v Value) Str() string {
	return v.s
}

// Key returns a type-tagged string key for the value, suitable for use as a
// map key without cross-type collisions ("i:42" vs "s:42").
func (v Value) Key() string {
	switch v.kind {
	case KindInt:
		return "i:" + strconv.FormatInt(v.i, 10)
	default:
		return "s:" + v.s
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindInt {
		return v.i == o.i
	}
	return v.s == o.s
}

// String renders the value for display and log output.
func (v Value) String() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.i, 10)
	}
	return v.s
}

// MarshalJSON encodes integers as JSON numbers and strings as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInt {
		return []byte(strconv.FormatInt(v.i, 10)), nil
	}
	return json.Marshal(v.s)
}

// UnmarshalJSON decodes a JSON number into an integer value and a JSON
// string into a string value. Fractional numbers are rejected: quickset has
// no float type.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 {
		return fmt.Errorf("empty value")
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}

	i, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fmt.Errorf("value must be an integer or a string, got %s", trimmed)
	}
	*v = IntValue(i)
	return nil
}
