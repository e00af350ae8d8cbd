// Package table implements the schema-typed table: one row store plus a set
// of per-column indexes kept consistent under a single reader/writer lock.
package table

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/internal/index"
	"github.com/quickset/quickset/internal/store"
	"github.com/quickset/quickset/pkg/types"
)

// columnIndexes holds the index set for one column. Which fields are non-nil
// depends on the column type: string columns carry exact, prefix and
// fulltext; integer columns carry exact and range.
type columnIndexes struct {
	exact    *index.ExactIndex
	prefix   *index.PrefixIndex
	fulltext *index.FulltextIndex
	rng      *index.RangeIndex
}

// Table is a named, capacity-bounded collection of schema-typed rows. All
// mutations take the write lock and update the row store and every affected
// index before releasing it, so readers never observe a partially indexed
// row.
type Table struct {
	name   string
	schema *types.Schema

	mu      sync.RWMutex
	rows    *store.RowStore
	indexes []columnIndexes
}

// New creates an empty table. Index variants are chosen by column type.
func New(name string, schema *types.Schema, capacity int) *Table {
	t := &Table{
		name:    name,
		schema:  schema,
		rows:    store.NewRowStore(capacity),
		indexes: make([]columnIndexes, schema.Len()),
	}
	for i, col := range schema.Columns() {
		if col.Type == types.ColumnInt {
			t.indexes[i] = columnIndexes{
				exact: index.NewExact(false, capacity),
				rng:   index.NewRange(),
			}
		} else {
			t.indexes[i] = columnIndexes{
				exact:    index.NewExact(true, capacity),
				prefix:   index.NewPrefix(),
				fulltext: index.NewFulltext(),
			}
		}
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Schema returns the table schema.
func (t *Table) Schema() *types.Schema {
	return t.schema
}

// RowCount returns the current number of rows.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows.Len()
}

// Capacity returns the maximum number of rows.
func (t *Table) Capacity() int {
	return t.rows.Capacity()
}

// Insert adds a batch of rows. The whole batch is validated first: every row
// must match the schema, ids must be new and unique within the batch, and
// the batch must fit under capacity. On any failure nothing is inserted.
func (t *Table) Insert(batch [][]types.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.validateBatchLocked(batch, t.rows); err != nil {
		return err
	}
	for _, values := range batch {
		t.applyInsertLocked(types.NewRow(values))
	}
	return nil
}

// ReplaceAll atomically swaps the table contents for the given batch. The
// batch is validated against a fresh store first; on failure the existing
// rows are untouched. Used by sync sources refreshing external tables.
func (t *Table) ReplaceAll(batch [][]types.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := store.NewRowStore(t.rows.Capacity())
	if err := t.validateBatchLocked(batch, fresh); err != nil {
		return err
	}

	t.rows = fresh
	for i, col := range t.schema.Columns() {
		if col.Type == types.ColumnInt {
			t.indexes[i] = columnIndexes{
				exact: index.NewExact(false, t.rows.Capacity()),
				rng:   index.NewRange(),
			}
		} else {
			t.indexes[i] = columnIndexes{
				exact:    index.NewExact(true, t.rows.Capacity()),
				prefix:   index.NewPrefix(),
				fulltext: index.NewFulltext(),
			}
		}
	}
	for _, values := range batch {
		t.applyInsertLocked(types.NewRow(values))
	}
	return nil
}

// Update replaces the row with the given id. The identifier column is
// immutable: values[0] must equal id.
func (t *Table) Update(id int64, values []types.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.schema.Validate(values); err != nil {
		return err
	}
	if values[0].Int() != id {
		return qerr.NewSchemaMismatch(t.schema.IDColumn().Name,
			values[0].Kind().String()+" (immutable id)", values[0].String())
	}
	old, ok := t.rows.Get(id)
	if !ok {
		return qerr.NewRowNotFound(t.name, id)
	}

	t.applyRemoveLocked(old)
	t.applyInsertLocked(types.NewRow(values))
	return nil
}

// Delete removes the rows with the given ids and returns how many existed.
// Missing ids are skipped.
func (t *Table) Delete(ids []int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		row, ok := t.rows.Get(id)
		if !ok {
			continue
		}
		t.applyRemoveLocked(row)
		t.rows.Delete(id)
		deleted++
	}
	return deleted
}

// Get returns the rows for the given ids in input order, omitting missing
// ids.
func (t *Table) Get(ids []int64) []types.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.Row, 0, len(ids))
	for _, id := range ids {
		if row, ok := t.rows.Get(id); ok {
			out = append(out, row)
		}
	}
	return out
}

// HasIndex reports whether the named column carries the given index kind.
func (t *Table) HasIndex(column string, kind index.Kind) bool {
	i := t.schema.Index(column)
	if i < 0 {
		return false
	}
	for _, k := range index.KindsFor(t.schema.Column(i).Type) {
		if k == kind {
			return true
		}
	}
	return false
}

// SearchExact returns the rows whose column equals v.
func (t *Table) SearchExact(column string, v types.Value) ([]types.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.columnForLocked(column, index.Exact)
	if err != nil {
		return nil, err
	}
	col := t.schema.Column(i)
	if v.Kind() != col.Type.Kind() {
		return nil, qerr.NewInvalidQuery(
			"exact search value must be a " + col.Type.String() + " for column " + column)
	}
	return t.materializeLocked(t.indexes[i].exact.Lookup(v)), nil
}

// SearchPrefix returns the rows whose string column starts with prefix. The
// empty prefix matches every row.
func (t *Table) SearchPrefix(column, prefix string) ([]types.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.columnForLocked(column, index.Prefix)
	if err != nil {
		return nil, err
	}
	return t.materializeLocked(t.indexes[i].prefix.Lookup(prefix)), nil
}

// SearchFulltext returns the rows whose string column contains every token
// of the query.
func (t *Table) SearchFulltext(column, query string) ([]types.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.columnForLocked(column, index.Fulltext)
	if err != nil {
		return nil, err
	}
	return t.materializeLocked(t.indexes[i].fulltext.Lookup(query)), nil
}

// SearchRange returns the rows whose integer column falls in [min, max].
func (t *Table) SearchRange(column string, min, max int64) ([]types.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, err := t.columnForLocked(column, index.Range)
	if err != nil {
		return nil, err
	}
	return t.materializeLocked(t.indexes[i].rng.Lookup(min, max)), nil
}

// ColumnStats describes one column for the stats endpoint.
type ColumnStats struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Indexes []string `json:"indexes"`
}

// Stats is a point-in-time snapshot of a table.
type Stats struct {
	Name     string        `json:"name"`
	RowCount int           `json:"row_count"`
	Capacity int           `json:"capacity"`
	Columns  []ColumnStats `json:"columns"`
}

// Stats returns a snapshot of the table's row count, capacity and per-column
// index kinds.
func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cols := make([]ColumnStats, t.schema.Len())
	for i, col := range t.schema.Columns() {
		kinds := index.KindsFor(col.Type)
		names := make([]string, len(kinds))
		for j, k := range kinds {
			names[j] = k.String()
		}
		cols[i] = ColumnStats{Name: col.Name, Type: col.Type.String(), Indexes: names}
	}
	return Stats{
		Name:     t.name,
		RowCount: t.rows.Len(),
		Capacity: t.rows.Capacity(),
		Columns:  cols,
	}
}

// validateBatchLocked checks a batch against the schema, the target store's
// existing ids and capacity, and duplicate ids within the batch itself.
func (t *Table) validateBatchLocked(batch [][]types.Value, target *store.RowStore) error {
	if target.Len()+len(batch) > target.Capacity() {
		return qerr.NewCapacityExceeded(t.name, target.Capacity(), target.Len()+len(batch))
	}
	seen := make(map[int64]struct{}, len(batch))
	for _, values := range batch {
		if err := t.schema.Validate(values); err != nil {
			return err
		}
		id := values[0].Int()
		if _, dup := seen[id]; dup {
			return qerr.NewDuplicateID(t.name, id)
		}
		if target.Has(id) {
			return qerr.NewDuplicateID(t.name, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// applyInsertLocked stores a validated row and registers it in every column
// index.
func (t *Table) applyInsertLocked(row types.Row) {
	t.rows.Put(row)
	for i, v := range row.Values {
		ci := t.indexes[i]
		ci.exact.Insert(v, row.ID)
		if v.Kind() == types.KindString {
			ci.prefix.Insert(v.Str(), row.ID)
			ci.fulltext.Insert(v.Str(), row.ID)
		} else if ci.rng != nil {
			ci.rng.Insert(v.Int(), row.ID)
		}
	}
}

// applyRemoveLocked unregisters a row from every column index. The row store
// entry is handled by the caller.
func (t *Table) applyRemoveLocked(row types.Row) {
	for i, v := range row.Values {
		ci := t.indexes[i]
		ci.exact.Remove(v, row.ID)
		if v.Kind() == types.KindString {
			ci.prefix.Remove(v.Str(), row.ID)
			ci.fulltext.Remove(v.Str(), row.ID)
		} else if ci.rng != nil {
			ci.rng.Remove(v.Int(), row.ID)
		}
	}
}

// columnForLocked resolves a column name and checks it carries the wanted
// index kind.
func (t *Table) columnForLocked(column string, kind index.Kind) (int, error) {
	i := t.schema.Index(column)
	if i < 0 {
		return 0, qerr.NewColumnNotFound(t.name, column)
	}
	ci := t.indexes[i]
	switch kind {
	case index.Exact:
		if ci.exact != nil {
			return i, nil
		}
	case index.Prefix:
		if ci.prefix != nil {
			return i, nil
		}
	case index.Fulltext:
		if ci.fulltext != nil {
			return i, nil
		}
	case index.Range:
		if ci.rng != nil {
			return i, nil
		}
	}
	return 0, qerr.NewIndexUnavailable(t.name, column, kind.String())
}

// materializeLocked turns a posting set into full rows in ascending id
// order, which makes pagination over results deterministic.
func (t *Table) materializeLocked(ids *roaring64.Bitmap) []types.Row {
	out := make([]types.Row, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		id := int64(it.Next())
		if row, ok := t.rows.Get(id); ok {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
