package table

import (
	"sort"
	"sync"

	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/pkg/types"
)

// Registry maps table names to tables. It has its own lock, separate from
// the per-table locks, so operations on one table never block the others.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Create registers a new table under name.
func (r *Registry) Create(name string, schema *types.Schema, capacity int) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[name]; exists {
		return nil, qerr.NewTableAlreadyExists(name)
	}
	t := New(name, schema, capacity)
	r.tables[name] = t
	return t, nil
}

// Get returns the table registered under name.
func (r *Registry) Get(name string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[name]
	if !ok {
		return nil, qerr.NewTableNotFound(name)
	}
	return t, nil
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered table, ordered by name.
func (r *Registry) All() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Table, len(names))
	for i, name := range names {
		out[i] = r.tables[name]
	}
	return out
}
