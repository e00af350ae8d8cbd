package types

// Row is a full table row. ID is the value of the identifier column,
// duplicated out of Values for direct access.
type Row struct {
	ID     int64   `json:"id"`
	Values []Value `json:"values"`
}

// NewRow builds a Row from schema-validated values. The caller must have run
// Schema.Validate first; values[0] is assumed to be the integer identifier.
func NewRow(values []Value) Row {
	return Row{ID: values[0].Int(), Values: values}
}

// Clone returns a deep copy of the row. Values are immutable so a slice copy
// suffices.
func (r Row) Clone() Row {
	vals := make([]Value, len(r.Values))
	copy(vals, r.Values)
	return Row{ID: r.ID, Values: vals}
}
