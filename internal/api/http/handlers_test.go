package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickset/quickset/internal/auth"
	"github.com/quickset/quickset/internal/config"
	"github.com/quickset/quickset/internal/observability"
	"github.com/quickset/quickset/internal/query"
	"github.com/quickset/quickset/internal/table"
)

func newTestServer(t *testing.T, level config.AuthLevel) *httptest.Server {
	t.Helper()

	registry := table.NewRegistry()
	stats := observability.NewSearchStats(time.Hour)
	engine := query.NewEngine(registry, stats)
	authMgr := auth.NewManager(level, "root", "secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	api := NewAPI(registry, engine, authMgr, stats, 1000, logger)
	base := ChainMiddleware(RequestIDMiddleware, RecoveryMiddleware, ContentTypeMiddleware)

	srv := httptest.NewServer(api.Routes(base))
	t.Cleanup(srv.Close)
	return srv
}

type call struct {
	method string
	path   string
	body   string
	user   string
	pass   string
}

func do(t *testing.T, srv *httptest.Server, c call) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if c.body != "" {
		body = bytes.NewBufferString(c.body)
	}
	req, err := http.NewRequest(c.method, srv.URL+c.path, body)
	require.NoError(t, err)
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, map[string]any) {
	t.Helper()
	return do(t, srv, call{method: http.MethodPost, path: path, body: body})
}

func get(t *testing.T, srv *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	return do(t, srv, call{method: http.MethodGet, path: path})
}

const createUsersTable = `{
	"name": "users",
	"columns": [
		{"name": "id", "type": "int"},
		{"name": "name", "type": "string"},
		{"name": "bio", "type": "string"},
		{"name": "age", "type": "int"}
	],
	"capacity": 100
}`

const insertUsers = `{
	"table": "users",
	"rows": [
		[1, "alice", "likes distributed systems", 30],
		[2, "bob", "likes embedded systems", 25],
		[3, "alina", "systems programmer", 41]
	]
}`

func TestAPI_TableLifecycle(t *testing.T) {
	srv := newTestServer(t, config.AuthNone)

	status, body := post(t, srv, "/table/create", createUsersTable)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "users", body["table"])
	assert.EqualValues(t, 100, body["capacity"])

	status, body = post(t, srv, "/insert", insertUsers)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["inserted"])

	status, body = get(t, srv, "/tables")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"users"}, body["tables"])

	// Exact
	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "name", "type": "exact", "value": "alice"}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
	rows := body["rows"].([]any)
	first := rows[0].([]any)
	assert.EqualValues(t, 1, first[0])
	assert.Equal(t, "alice", first[1])

	// Prefix
	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "name", "type": "prefix", "prefix": "ali"}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])

	// Fulltext
	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "bio", "type": "fulltext", "query": "likes systems"}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])

	// Range
	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "age", "type": "range", "min": 26, "max": 45}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])

	// Range with pagination
	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "age", "type": "range", "min": 0, "max": 100, "limit": 1, "offset": 1}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = post(t, srv, "/get", `{"table": "users", "ids": [2, 99]}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = post(t, srv, "/update",
		`{"table": "users", "id": 2, "values": [2, "robert", "renamed", 26]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["updated"])
	updatedRow := body["row"].([]any)
	assert.EqualValues(t, 2, updatedRow[0])
	assert.Equal(t, "robert", updatedRow[1])

	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "name", "type": "exact", "value": "bob"}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["count"], "old value unindexed after update")

	status, body = post(t, srv, "/delete", `{"table": "users", "ids": [1, 99]}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["deleted"])

	status, body = get(t, srv, "/stats")
	require.Equal(t, http.StatusOK, status)
	tables := body["tables"].([]any)
	require.Len(t, tables, 1)
	stats := tables[0].(map[string]any)
	assert.Equal(t, "users", stats["name"])
	assert.EqualValues(t, 2, stats["row_count"])
	assert.NotEmpty(t, body["top_searches"], "searches above were recorded")
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t, config.AuthAll)

	// Health is reachable without credentials even at auth level all.
	status, body := get(t, srv, "/health")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestAPI_ErrorStatuses(t *testing.T) {
	srv := newTestServer(t, config.AuthNone)

	status, body := post(t, srv, "/table/create", createUsersTable)
	require.Equal(t, http.StatusCreated, status)

	status, body = post(t, srv, "/table/create", createUsersTable)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TABLE_ALREADY_EXISTS", body["code"])

	status, body = post(t, srv, "/insert", `{"table": "ghost", "rows": [[1, "a", "b", 2]]}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "TABLE_NOT_FOUND", body["code"])

	status, _ = post(t, srv, "/insert", insertUsers)
	require.Equal(t, http.StatusOK, status)

	status, body = post(t, srv, "/insert", `{"table": "users", "rows": [[1, "dup", "x", 1]]}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_ID", body["code"])

	status, body = post(t, srv, "/insert", `{"table": "users", "rows": [[9, "short"]]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SCHEMA_MISMATCH", body["code"])

	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "name", "type": "fuzzy", "value": "a"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUERY", body["code"])

	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "nope", "type": "exact", "value": "a"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "COLUMN_NOT_FOUND", body["code"])

	status, body = post(t, srv, "/search",
		`{"table": "users", "column": "name", "type": "range", "min": 1, "max": 2}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INDEX_UNAVAILABLE", body["code"])

	status, _ = post(t, srv, "/search", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = get(t, srv, "/insert")
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, body = post(t, srv, "/table/create",
		`{"name": "bad", "columns": [{"name": "id", "type": "float"}]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_SCHEMA", body["code"])
}

func TestAPI_RequestIDPropagation(t *testing.T) {
	srv := newTestServer(t, config.AuthNone)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/tables", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "test-req-42")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "test-req-42", resp.Header.Get("X-Request-ID"))
}

func TestAPI_AuthGating(t *testing.T) {
	srv := newTestServer(t, config.AuthWrite)

	// Reads are open at auth level write
	status, _ := get(t, srv, "/tables")
	assert.Equal(t, http.StatusOK, status)

	// Writes need credentials
	status, _ = post(t, srv, "/table/create", createUsersTable)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, call{
		method: http.MethodPost, path: "/table/create", body: createUsersTable,
		user: "root", pass: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, srv, call{
		method: http.MethodPost, path: "/table/create", body: createUsersTable,
		user: "root", pass: "secret",
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestAPI_AuthGatingAtReadLevel(t *testing.T) {
	srv := newTestServer(t, config.AuthRead)

	// Gating reads gates writes too: no endpoint besides health is open
	status, _ := get(t, srv, "/tables")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = post(t, srv, "/table/create", createUsersTable)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, call{
		method: http.MethodPost, path: "/table/create", body: createUsersTable,
		user: "root", pass: "secret",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = do(t, srv, call{
		method: http.MethodGet, path: "/tables", user: "root", pass: "secret",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_RoleEnforcement(t *testing.T) {
	srv := newTestServer(t, config.AuthAll)

	admin := func(method, path, body string) (int, map[string]any) {
		return do(t, srv, call{method: method, path: path, body: body, user: "root", pass: "secret"})
	}

	status, _ := admin(http.MethodPost, "/auth/user/add",
		`{"name": "viewer", "password": "pw", "role": "readonly"}`)
	require.Equal(t, http.StatusCreated, status)

	status, _ = admin(http.MethodPost, "/table/create", createUsersTable)
	require.Equal(t, http.StatusCreated, status)

	// A readonly user can search but not insert or manage users
	status, _ = do(t, srv, call{
		method: http.MethodGet, path: "/tables", user: "viewer", pass: "pw",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, call{
		method: http.MethodPost, path: "/insert", body: insertUsers,
		user: "viewer", pass: "pw",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, call{
		method: http.MethodGet, path: "/auth/users", user: "viewer", pass: "pw",
	})
	assert.Equal(t, http.StatusForbidden, status)

	// Duplicate user
	status, body := admin(http.MethodPost, "/auth/user/add",
		`{"name": "viewer", "password": "pw", "role": "readonly"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "USER_ALREADY_EXISTS", body["code"])

	status, body = admin(http.MethodGet, "/auth/users", "")
	require.Equal(t, http.StatusOK, status)
	users := body["users"].([]any)
	assert.Len(t, users, 2)

	status, _ = admin(http.MethodPost, "/auth/user/remove", `{"name": "viewer"}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, call{
		method: http.MethodGet, path: "/tables", user: "viewer", pass: "pw",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}
