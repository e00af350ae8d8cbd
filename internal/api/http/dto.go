package http

import (
	"github.com/quickset/quickset/internal/auth"
	"github.com/quickset/quickset/internal/observability"
	"github.com/quickset/quickset/internal/table"
	"github.com/quickset/quickset/pkg/types"
)

// ColumnDef is one column in a table create request.
type ColumnDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateTableRequest creates a new table. Capacity 0 falls back to the
// server default.
type CreateTableRequest struct {
	Name     string      `json:"name"`
	Columns  []ColumnDef `json:"columns"`
	Capacity int         `json:"capacity"`
}

// CreateTableResponse acknowledges a table creation.
type CreateTableResponse struct {
	Table     string `json:"table"`
	Capacity  int    `json:"capacity"`
	RequestID string `json:"request_id,omitempty"`
}

// TablesResponse lists the registered table names.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Tables      []table.Stats               `json:"tables"`
	TopSearches []observability.ColumnUsage `json:"top_searches"`
}

// InsertRequest inserts a batch of rows. Each row is a full values array in
// schema column order.
type InsertRequest struct {
	Table string          `json:"table"`
	Rows  [][]types.Value `json:"rows"`
}

// InsertResponse reports how many rows were inserted.
type InsertResponse struct {
	Inserted  int    `json:"inserted"`
	RequestID string `json:"request_id,omitempty"`
}

// SearchRequest runs one search. Type selects the mode; the matching
// parameter field must be set.
type SearchRequest struct {
	Table  string       `json:"table"`
	Column string       `json:"column"`
	Type   string       `json:"type"`
	Value  *types.Value `json:"value,omitempty"`
	Prefix *string      `json:"prefix,omitempty"`
	Query  *string      `json:"query,omitempty"`
	Min    *int64       `json:"min,omitempty"`
	Max    *int64       `json:"max,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// SearchResponse returns matching rows as values arrays in schema column
// order.
type SearchResponse struct {
	Count     int             `json:"count"`
	Rows      [][]types.Value `json:"rows"`
	RequestID string          `json:"request_id,omitempty"`
}

// GetRequest fetches rows by id. Missing ids are omitted from the response.
type GetRequest struct {
	Table string  `json:"table"`
	IDs   []int64 `json:"ids"`
}

// GetResponse returns the found rows.
type GetResponse struct {
	Count int             `json:"count"`
	Rows  [][]types.Value `json:"rows"`
}

// UpdateRequest replaces a row. The identifier column is immutable, so
// values[0] must equal id.
type UpdateRequest struct {
	Table  string        `json:"table"`
	ID     int64         `json:"id"`
	Values []types.Value `json:"values"`
}

// UpdateResponse acknowledges an update and echoes the new row values.
type UpdateResponse struct {
	Updated   bool          `json:"updated"`
	Row       []types.Value `json:"row"`
	RequestID string        `json:"request_id,omitempty"`
}

// DeleteRequest removes rows by id.
type DeleteRequest struct {
	Table string  `json:"table"`
	IDs   []int64 `json:"ids"`
}

// DeleteResponse reports how many rows existed and were removed.
type DeleteResponse struct {
	Deleted   int    `json:"deleted"`
	RequestID string `json:"request_id,omitempty"`
}

// AddUserRequest registers a new user.
type AddUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RemoveUserRequest deletes a user.
type RemoveUserRequest struct {
	Name string `json:"name"`
}

// UsersResponse lists all users.
type UsersResponse struct {
	Users []auth.UserInfo `json:"users"`
}

// StatusResponse is a generic acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// valueRows flattens rows to their values arrays for the wire.
func valueRows(rows []types.Row) [][]types.Value {
	out := make([][]types.Value, len(rows))
	for i, r := range rows {
		out[i] = r.Values
	}
	return out
}
