// Package source pulls tables from external databases into quickset on a
// schedule. Each source driver fetches full tables as value rows; the runner
// swaps them into the registry atomically.
package source

import (
	"context"
	"fmt"

	"github.com/quickset/quickset/internal/config"
	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/pkg/types"
)

// Source is one external database.
type Source interface {
	// Connect verifies the source is reachable.
	Connect(ctx context.Context) error

	// FetchTable pulls all rows of one configured table. Rows that cannot
	// be represented (NULLs, unparseable integers) are dropped; the second
	// return value counts them.
	FetchTable(ctx context.Context, tbl config.SourceTableConfig) ([][]types.Value, int, error)

	// Close releases the connection.
	Close() error

	// Name identifies the source in logs.
	Name() string
}

// New builds a source from its configuration.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Driver {
	case "clickhouse":
		return NewClickHouse(cfg), nil
	case "sqlite":
		return NewSQLite(cfg), nil
	default:
		return nil, qerr.NewSourceError(qerr.CodeSourceUnavailable,
			fmt.Sprintf("unknown source driver %q", cfg.Driver), nil)
	}
}

// columnTypes resolves the declared column types of a table mapping.
func columnTypes(tbl config.SourceTableConfig) ([]types.ColumnType, error) {
	out := make([]types.ColumnType, len(tbl.Columns))
	for i, col := range tbl.Columns {
		t, err := types.ParseColumnType(col.Type)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// sourceColumnName returns the external column name for a mapping, falling
// back to the target name.
func sourceColumnName(col config.SourceColumnConfig) string {
	if col.SourceName != "" {
		return col.SourceName
	}
	return col.Name
}

// buildQuery renders the SELECT for a table mapping unless an override is
// configured.
func buildQuery(tbl config.SourceTableConfig) string {
	if tbl.QueryOverride != "" {
		return tbl.QueryOverride
	}
	cols := ""
	for i, col := range tbl.Columns {
		if i > 0 {
			cols += ", "
		}
		cols += sourceColumnName(col)
	}
	if cols == "" {
		cols = "*"
	}
	return fmt.Sprintf("SELECT %s FROM %s", cols, tbl.Source)
}
