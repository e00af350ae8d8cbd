package source

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickset/quickset/internal/config"
	"github.com/quickset/quickset/internal/table"
	"github.com/quickset/quickset/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runnerConfig(path string) config.SyncConfig {
	return config.SyncConfig{
		Interval: time.Minute,
		Sources: []config.SourceConfig{{
			Name:   "catalog",
			Driver: "sqlite",
			Path:   path,
			Tables: []config.SourceTableConfig{{
				Source:   "products",
				Target:   "catalog",
				Capacity: 50,
				Columns: []config.SourceColumnConfig{
					{Name: "id", Type: "int"},
					{Name: "name", Type: "string"},
					{Name: "price", Type: "int"},
				},
			}},
		}},
	}
}

func TestRunner_RunOnceCreatesAndFillsTable(t *testing.T) {
	path := seedSQLite(t)
	registry := table.NewRegistry()
	r := NewRunner(runnerConfig(path), registry, 1000, discardLogger())

	r.RunOnce(context.Background())

	tbl, err := registry.Get("catalog")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.RowCount(), "NULL row dropped, two synced")
	assert.Equal(t, 50, tbl.Stats().Capacity)

	rows, err := tbl.SearchExact("name", types.StringValue("widget"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
}

func TestRunner_RunOnceReplacesRows(t *testing.T) {
	path := seedSQLite(t)
	registry := table.NewRegistry()
	r := NewRunner(runnerConfig(path), registry, 1000, discardLogger())

	r.RunOnce(context.Background())

	// Rewrite the source table and sync again
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM products`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products (id, name, price) VALUES (7, 'sprocket', 700)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	r.RunOnce(context.Background())

	tbl, err := registry.Get("catalog")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.RowCount())
	assert.Empty(t, tbl.Get([]int64{1}), "old rows gone after swap")
	assert.Len(t, tbl.Get([]int64{7}), 1)
}

func TestRunner_TargetDefaultsToSourceName(t *testing.T) {
	path := seedSQLite(t)
	cfg := runnerConfig(path)
	cfg.Sources[0].Tables[0].Target = ""

	registry := table.NewRegistry()
	r := NewRunner(cfg, registry, 1000, discardLogger())
	r.RunOnce(context.Background())

	_, err := registry.Get("products")
	assert.NoError(t, err)
}

func TestRunner_FailingSourceLeavesTableUntouched(t *testing.T) {
	path := seedSQLite(t)
	registry := table.NewRegistry()
	r := NewRunner(runnerConfig(path), registry, 1000, discardLogger())
	r.RunOnce(context.Background())

	// Point the runner at a missing file; the previous rows must survive.
	broken := NewRunner(runnerConfig(path+".gone"), registry, 1000, discardLogger())
	broken.RunOnce(context.Background())

	tbl, err := registry.Get("catalog")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.RowCount())
}

func TestRunner_StartStop(t *testing.T) {
	path := seedSQLite(t)
	registry := table.NewRegistry()
	r := NewRunner(runnerConfig(path), registry, 1000, discardLogger())

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "second start is rejected")

	// The immediate first cycle populates the table.
	deadline := time.After(5 * time.Second)
	for {
		if _, err := registry.Get("catalog"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("table never appeared")
		case <-time.After(10 * time.Millisecond):
		}
	}

	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop(), "stop is idempotent")
}
