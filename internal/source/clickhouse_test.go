package source

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickset/quickset/internal/config"
	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/pkg/types"
)

// fakeClickHouse runs an HTTP server that answers queries the way the
// ClickHouse HTTP interface does.
func fakeClickHouse(t *testing.T, handler http.HandlerFunc) config.SourceConfig {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return config.SourceConfig{
		Name:     "test-ch",
		Driver:   "clickhouse",
		Host:     host,
		Port:     port,
		Database: "analytics",
		User:     "reader",
		Password: "pw",
	}
}

func TestClickHouse_FetchTable(t *testing.T) {
	var gotQuery string
	var gotParams map[string]string

	cfg := fakeClickHouse(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		gotParams = map[string]string{
			"database": r.URL.Query().Get("database"),
			"user":     r.URL.Query().Get("user"),
			"password": r.URL.Query().Get("password"),
		}
		// Second row carries a NULL, fourth an unparseable int; both are
		// dropped. The last row exercises TSV unescaping.
		io.WriteString(w, "1\talice\n")
		io.WriteString(w, "2\t\\N\n")
		io.WriteString(w, "3\tbob\n")
		io.WriteString(w, "oops\tcarol\n")
		io.WriteString(w, "5\tline\\nbreak\\ttab\n")
	})

	ch := NewClickHouse(cfg)
	rows, dropped, err := ch.FetchTable(context.Background(), config.SourceTableConfig{
		Source: "events",
		Columns: []config.SourceColumnConfig{
			{Name: "id", Type: "int"},
			{Name: "name", Type: "string", SourceName: "user_name"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, user_name FROM events FORMAT TabSeparated", gotQuery)
	assert.Equal(t, "analytics", gotParams["database"])
	assert.Equal(t, "reader", gotParams["user"])
	assert.Equal(t, "pw", gotParams["password"])

	require.Len(t, rows, 3)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, int64(1), rows[0][0].Int())
	assert.Equal(t, "alice", rows[0][1].Str())
	assert.Equal(t, "line\nbreak\ttab", rows[2][1].Str())
}

func TestClickHouse_QueryOverride(t *testing.T) {
	var gotQuery string
	cfg := fakeClickHouse(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotQuery = string(body)
		io.WriteString(w, "1\tx\n")
	})

	ch := NewClickHouse(cfg)
	_, _, err := ch.FetchTable(context.Background(), config.SourceTableConfig{
		Source:        "events",
		QueryOverride: "SELECT id, name FROM events WHERE active = 1",
		Columns: []config.SourceColumnConfig{
			{Name: "id", Type: "int"},
			{Name: "name", Type: "string"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM events WHERE active = 1 FORMAT TabSeparated", gotQuery)
}

func TestClickHouse_ServerError(t *testing.T) {
	cfg := fakeClickHouse(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Code: 60. DB::Exception: Table analytics.ghost does not exist", http.StatusNotFound)
	})

	ch := NewClickHouse(cfg)
	_, _, err := ch.FetchTable(context.Background(), config.SourceTableConfig{
		Source:  "ghost",
		Columns: []config.SourceColumnConfig{{Name: "id", Type: "int"}},
	})
	assert.Equal(t, qerr.CodeSourceBadData, qerr.GetCode(err))
}

func TestClickHouse_Unreachable(t *testing.T) {
	ch := NewClickHouse(config.SourceConfig{
		Name: "down", Driver: "clickhouse", Host: "127.0.0.1", Port: 1,
	})
	err := ch.Connect(context.Background())
	assert.Equal(t, qerr.CodeSourceUnavailable, qerr.GetCode(err))
}

func TestParseTSV_ShortLines(t *testing.T) {
	colTypes := []types.ColumnType{types.ColumnInt, types.ColumnString}

	rows, dropped, err := parseTSV("1\ta\n2\n\n3\tb\n", colTypes)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1, dropped, "line missing a column is dropped")
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t", buildQuery(config.SourceTableConfig{Source: "t"}))

	q := buildQuery(config.SourceTableConfig{
		Source: "t",
		Columns: []config.SourceColumnConfig{
			{Name: "id", Type: "int"},
			{Name: "label", SourceName: "tag", Type: "string"},
		},
	})
	assert.Equal(t, "SELECT id, tag FROM t", q)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(config.SourceConfig{Driver: "postgres"})
	assert.Equal(t, qerr.CodeSourceUnavailable, qerr.GetCode(err))
}
