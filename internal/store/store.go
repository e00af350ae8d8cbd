// Package store holds the primary row storage for a table: an id-keyed map
// with a fixed capacity. It is not internally synchronized; the owning table
// serializes access.
package store

import (
	"github.com/quickset/quickset/pkg/types"
)

// RowStore maps row ids to full rows.
type RowStore struct {
	rows     map[int64]types.Row
	capacity int
}

// NewRowStore creates a store bounded at capacity rows.
func NewRowStore(capacity int) *RowStore {
	return &RowStore{
		rows:     make(map[int64]types.Row),
		capacity: capacity,
	}
}

// Len returns the number of stored rows.
func (s *RowStore) Len() int {
	return len(s.rows)
}

// Capacity returns the maximum number of rows.
func (s *RowStore) Capacity() int {
	return s.capacity
}

// Has reports whether a row with the given id exists.
func (s *RowStore) Has(id int64) bool {
	_, ok := s.rows[id]
	return ok
}

// Get returns the row for id, if present.
func (s *RowStore) Get(id int64) (types.Row, bool) {
	r, ok := s.rows[id]
	return r, ok
}

// Put stores a row, replacing any previous row with the same id. The caller
// enforces capacity and id uniqueness before mutating.
func (s *RowStore) Put(r types.Row) {
	s.rows[r.ID] = r
}

// Delete removes the row for id and reports whether it existed.
func (s *RowStore) Delete(id int64) bool {
	if _, ok := s.rows[id]; !ok {
		return false
	}
	delete(s.rows, id)
	return true
}

// Clear drops every row, keeping the capacity.
func (s *RowStore) Clear() {
	s.rows = make(map[int64]types.Row)
}
