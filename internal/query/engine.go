// Package query dispatches search requests to the right per-column index
// and applies result pagination.
package query

import (
	"fmt"

	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/internal/index"
	"github.com/quickset/quickset/internal/table"
	"github.com/quickset/quickset/pkg/types"
)

// Request is one search call. Exactly the parameters of the requested mode
// must be set: Value for exact, Prefix for prefix, Query for fulltext, and
// Min/Max for range. Limit <= 0 means unlimited.
type Request struct {
	Table  string
	Column string
	Mode   index.Kind

	Value  *types.Value
	Prefix *string
	Query  *string
	Min    *int64
	Max    *int64

	Limit  int
	Offset int
}

// Recorder observes every search for frequency tracking.
type Recorder interface {
	RecordSearch(table, column, mode string)
}

// Engine resolves search requests against the table registry.
type Engine struct {
	registry *table.Registry
	recorder Recorder
}

// NewEngine creates an engine. recorder may be nil.
func NewEngine(registry *table.Registry, recorder Recorder) *Engine {
	return &Engine{registry: registry, recorder: recorder}
}

// Search validates the request parameters, runs the lookup on the target
// table and returns the matching rows in ascending id order, paginated by
// offset and limit.
func (e *Engine) Search(req Request) ([]types.Row, error) {
	tbl, err := e.registry.Get(req.Table)
	if err != nil {
		return nil, err
	}

	var rows []types.Row
	switch req.Mode {
	case index.Exact:
		if req.Value == nil {
			return nil, qerr.NewInvalidQuery("exact search requires a value")
		}
		rows, err = tbl.SearchExact(req.Column, *req.Value)
	case index.Prefix:
		if req.Prefix == nil {
			return nil, qerr.NewInvalidQuery("prefix search requires a prefix")
		}
		rows, err = tbl.SearchPrefix(req.Column, *req.Prefix)
	case index.Fulltext:
		if req.Query == nil {
			return nil, qerr.NewInvalidQuery("fulltext search requires a query")
		}
		rows, err = tbl.SearchFulltext(req.Column, *req.Query)
	case index.Range:
		if req.Min == nil || req.Max == nil {
			return nil, qerr.NewInvalidQuery("range search requires both min and max")
		}
		if *req.Min > *req.Max {
			return nil, qerr.NewInvalidQuery(
				fmt.Sprintf("range min %d exceeds max %d", *req.Min, *req.Max))
		}
		rows, err = tbl.SearchRange(req.Column, *req.Min, *req.Max)
	default:
		return nil, qerr.NewInvalidQuery(fmt.Sprintf("unknown search mode %q", req.Mode))
	}
	if err != nil {
		return nil, err
	}

	if e.recorder != nil {
		e.recorder.RecordSearch(req.Table, req.Column, req.Mode.String())
	}
	return paginate(rows, req.Offset, req.Limit), nil
}

// paginate slices rows by offset and limit. A non-positive limit returns
// everything past the offset.
func paginate(rows []types.Row, offset, limit int) []types.Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []types.Row{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
