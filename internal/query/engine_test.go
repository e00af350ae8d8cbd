package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/internal/index"
	"github.com/quickset/quickset/internal/table"
	"github.com/quickset/quickset/pkg/types"
)

type recordedSearch struct {
	table, column, mode string
}

type fakeRecorder struct {
	calls []recordedSearch
}

func (f *fakeRecorder) RecordSearch(table, column, mode string) {
	f.calls = append(f.calls, recordedSearch{table, column, mode})
}

func setupEngine(t *testing.T) (*Engine, *fakeRecorder) {
	t.Helper()

	schema, err := types.NewSchema([]types.Column{
		{Name: "id", Type: types.ColumnInt},
		{Name: "name", Type: types.ColumnString},
		{Name: "value", Type: types.ColumnInt},
	})
	require.NoError(t, err)

	registry := table.NewRegistry()
	tbl, err := registry.Create("items", schema, 100)
	require.NoError(t, err)

	batch := make([][]types.Value, 10)
	for i := 0; i < 10; i++ {
		batch[i] = []types.Value{
			types.IntValue(int64(i)),
			types.StringValue("item-" + string(rune('a'+i))),
			types.IntValue(int64(i * 10)),
		}
	}
	require.NoError(t, tbl.Insert(batch))

	rec := &fakeRecorder{}
	return NewEngine(registry, rec), rec
}

func strPtr(s string) *string  { return &s }
func i64Ptr(i int64) *int64    { return &i }
func valPtr(v types.Value) *types.Value { return &v }

func TestEngine_ExactSearch(t *testing.T) {
	e, rec := setupEngine(t)

	rows, err := e.Search(Request{
		Table: "items", Column: "name", Mode: index.Exact,
		Value: valPtr(types.StringValue("item-c")),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedSearch{"items", "name", "exact"}, rec.calls[0])
}

func TestEngine_MissingParams(t *testing.T) {
	e, _ := setupEngine(t)

	_, err := e.Search(Request{Table: "items", Column: "name", Mode: index.Exact})
	assert.Equal(t, qerr.CodeInvalidQuery, qerr.GetCode(err))

	_, err = e.Search(Request{Table: "items", Column: "name", Mode: index.Prefix})
	assert.Equal(t, qerr.CodeInvalidQuery, qerr.GetCode(err))

	_, err = e.Search(Request{Table: "items", Column: "name", Mode: index.Fulltext})
	assert.Equal(t, qerr.CodeInvalidQuery, qerr.GetCode(err))

	_, err = e.Search(Request{Table: "items", Column: "value", Mode: index.Range, Min: i64Ptr(1)})
	assert.Equal(t, qerr.CodeInvalidQuery, qerr.GetCode(err), "max missing")

	_, err = e.Search(Request{Table: "items", Column: "value", Mode: index.Range, Max: i64Ptr(1)})
	assert.Equal(t, qerr.CodeInvalidQuery, qerr.GetCode(err), "min missing")
}

func TestEngine_RangeMinAboveMax(t *testing.T) {
	e, rec := setupEngine(t)

	_, err := e.Search(Request{
		Table: "items", Column: "value", Mode: index.Range,
		Min: i64Ptr(50), Max: i64Ptr(10),
	})
	assert.Equal(t, qerr.CodeInvalidQuery, qerr.GetCode(err))
	assert.Empty(t, rec.calls, "failed searches are not recorded")
}

func TestEngine_TableNotFound(t *testing.T) {
	e, _ := setupEngine(t)

	_, err := e.Search(Request{
		Table: "ghost", Column: "name", Mode: index.Exact,
		Value: valPtr(types.StringValue("x")),
	})
	assert.Equal(t, qerr.CodeTableNotFound, qerr.GetCode(err))
}

func TestEngine_Pagination(t *testing.T) {
	e, _ := setupEngine(t)

	req := Request{
		Table: "items", Column: "value", Mode: index.Range,
		Min: i64Ptr(0), Max: i64Ptr(1000),
	}

	all, err := e.Search(req)
	require.NoError(t, err)
	require.Len(t, all, 10)

	req.Limit = 3
	page, err := e.Search(req)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, all[0].ID, page[0].ID)

	req.Offset = 3
	page, err = e.Search(req)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, all[3].ID, page[0].ID)

	req.Offset = 9
	page, err = e.Search(req)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	req.Offset = 100
	page, err = e.Search(req)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestEngine_PrefixAndFulltext(t *testing.T) {
	e, _ := setupEngine(t)

	rows, err := e.Search(Request{
		Table: "items", Column: "name", Mode: index.Prefix,
		Prefix: strPtr("item-"),
	})
	require.NoError(t, err)
	assert.Len(t, rows, 10)

	rows, err = e.Search(Request{
		Table: "items", Column: "name", Mode: index.Fulltext,
		Query: strPtr("item"),
	})
	require.NoError(t, err)
	assert.Len(t, rows, 10)
}
