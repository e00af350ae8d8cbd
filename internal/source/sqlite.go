package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quickset/quickset/internal/config"
	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/pkg/types"
)

// SQLite pulls tables from a local SQLite database file.
type SQLite struct {
	cfg config.SourceConfig
	db  *sql.DB
}

// NewSQLite creates a SQLite source.
func NewSQLite(cfg config.SourceConfig) *SQLite {
	return &SQLite{cfg: cfg}
}

// Name identifies the source in logs.
func (s *SQLite) Name() string {
	return s.cfg.Name
}

// Connect opens the database file read-only and verifies it responds.
func (s *SQLite) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.cfg.Path))
	if err != nil {
		return qerr.NewSourceError(qerr.CodeSourceUnavailable,
			fmt.Sprintf("failed to open sqlite database %s", s.cfg.Path), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return qerr.NewSourceError(qerr.CodeSourceUnavailable,
			fmt.Sprintf("failed to ping sqlite database %s", s.cfg.Path), err)
	}
	s.db = db
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// FetchTable runs the table's SELECT and scans the result. Rows carrying
// NULLs are dropped and counted; quickset has no null value.
func (s *SQLite) FetchTable(ctx context.Context, tbl config.SourceTableConfig) ([][]types.Value, int, error) {
	if s.db == nil {
		return nil, 0, qerr.NewSourceError(qerr.CodeSourceUnavailable, "sqlite source is not connected", nil)
	}

	colTypes, err := columnTypes(tbl)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, buildQuery(tbl))
	if err != nil {
		return nil, 0, qerr.NewSourceError(qerr.CodeSourceBadData,
			fmt.Sprintf("query failed for table %s", tbl.Source), err)
	}
	defer rows.Close()

	var out [][]types.Value
	dropped := 0
	for rows.Next() {
		dest := make([]interface{}, len(colTypes))
		ints := make([]sql.NullInt64, len(colTypes))
		strs := make([]sql.NullString, len(colTypes))
		for i, t := range colTypes {
			if t == types.ColumnInt {
				dest[i] = &ints[i]
			} else {
				dest[i] = &strs[i]
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, qerr.NewSourceError(qerr.CodeSourceBadData,
				fmt.Sprintf("scan failed for table %s", tbl.Source), err)
		}

		values := make([]types.Value, len(colTypes))
		ok := true
		for i, t := range colTypes {
			if t == types.ColumnInt {
				if !ints[i].Valid {
					ok = false
					break
				}
				values[i] = types.IntValue(ints[i].Int64)
			} else {
				if !strs[i].Valid {
					ok = false
					break
				}
				values[i] = types.StringValue(strs[i].String)
			}
		}
		if !ok {
			dropped++
			continue
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, qerr.NewSourceError(qerr.CodeSourceBadData,
			fmt.Sprintf("iteration failed for table %s", tbl.Source), err)
	}

	return out, dropped, nil
}
