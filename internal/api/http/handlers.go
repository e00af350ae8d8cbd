package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/quickset/quickset/internal/auth"
	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/internal/index"
	"github.com/quickset/quickset/internal/observability"
	"github.com/quickset/quickset/internal/query"
	"github.com/quickset/quickset/internal/table"
	"github.com/quickset/quickset/pkg/types"
)

// API holds the handler dependencies and registers the routes.
type API struct {
	registry        *table.Registry
	engine          *query.Engine
	auth            *auth.Manager
	stats           *observability.SearchStats
	defaultCapacity int
	logger          *slog.Logger
}

// NewAPI creates the API handler set.
func NewAPI(registry *table.Registry, engine *query.Engine, authMgr *auth.Manager,
	stats *observability.SearchStats, defaultCapacity int, logger *slog.Logger) *API {
	return &API{
		registry:        registry,
		engine:          engine,
		auth:            authMgr,
		stats:           stats,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}
}

// Routes builds the route table. base is the shared middleware chain applied
// to every route; each route additionally gets the auth middleware for its
// operation class.
func (a *API) Routes(base func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	route := func(path string, op auth.Operation, h http.HandlerFunc) {
		mux.Handle(path, base(AuthMiddleware(a.auth, op)(h)))
	}

	route("/table/create", auth.OpWrite, a.handleCreateTable)
	route("/tables", auth.OpRead, a.handleTables)
	route("/stats", auth.OpRead, a.handleStats)
	route("/insert", auth.OpWrite, a.handleInsert)
	route("/search", auth.OpRead, a.handleSearch)
	route("/get", auth.OpRead, a.handleGet)
	route("/update", auth.OpWrite, a.handleUpdate)
	route("/delete", auth.OpWrite, a.handleDelete)
	route("/auth/user/add", auth.OpAdmin, a.handleAddUser)
	route("/auth/user/remove", auth.OpAdmin, a.handleRemoveUser)
	route("/auth/users", auth.OpAdmin, a.handleUsers)
	mux.HandleFunc("/health", a.handleHealth)

	return mux
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"quickset","tables":%d}`, len(a.registry.Names()))
}

func (a *API) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}
	if req.Name == "" {
		writeError(w, qerr.NewInvalidSchema("table name is required"), requestID)
		return
	}

	columns := make([]types.Column, len(req.Columns))
	for i, def := range req.Columns {
		colType, err := types.ParseColumnType(def.Type)
		if err != nil {
			writeError(w, err, requestID)
			return
		}
		columns[i] = types.Column{Name: def.Name, Type: colType}
	}

	schema, err := types.NewSchema(columns)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	capacity := req.Capacity
	if capacity <= 0 {
		capacity = a.defaultCapacity
	}

	if _, err := a.registry.Create(req.Name, schema, capacity); err != nil {
		writeError(w, err, requestID)
		return
	}

	a.logger.Info("table created", "table", req.Name, "columns", len(columns), "capacity", capacity)
	writeJSON(w, http.StatusCreated, CreateTableResponse{
		Table:     req.Name,
		Capacity:  capacity,
		RequestID: requestID,
	})
}

func (a *API) handleTables(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodGet {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: a.registry.Names()})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodGet {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	tables := a.registry.All()
	stats := make([]table.Stats, len(tables))
	for i, t := range tables {
		stats[i] = t.Stats()
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Tables:      stats,
		TopSearches: a.stats.TopColumns(10),
	})
}

func (a *API) handleInsert(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	tbl, err := a.registry.Get(req.Table)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	if err := tbl.Insert(req.Rows); err != nil {
		writeError(w, err, requestID)
		return
	}

	a.logger.Debug("rows inserted", "table", req.Table, "count", len(req.Rows))
	writeJSON(w, http.StatusOK, InsertResponse{
		Inserted:  len(req.Rows),
		RequestID: requestID,
	})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	mode, ok := index.ParseKind(req.Type)
	if !ok {
		writeError(w, qerr.NewInvalidQuery(fmt.Sprintf("unknown search type %q", req.Type)), requestID)
		return
	}

	rows, err := a.engine.Search(query.Request{
		Table:  req.Table,
		Column: req.Column,
		Mode:   mode,
		Value:  req.Value,
		Prefix: req.Prefix,
		Query:  req.Query,
		Min:    req.Min,
		Max:    req.Max,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Count:     len(rows),
		Rows:      valueRows(rows),
		RequestID: requestID,
	})
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req GetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	tbl, err := a.registry.Get(req.Table)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	rows := tbl.Get(req.IDs)
	writeJSON(w, http.StatusOK, GetResponse{
		Count: len(rows),
		Rows:  valueRows(rows),
	})
}

func (a *API) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	tbl, err := a.registry.Get(req.Table)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	if err := tbl.Update(req.ID, req.Values); err != nil {
		writeError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, UpdateResponse{
		Updated:   true,
		Row:       req.Values,
		RequestID: requestID,
	})
}

func (a *API) handleDelete(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	tbl, err := a.registry.Get(req.Table)
	if err != nil {
		writeError(w, err, requestID)
		return
	}

	deleted := tbl.Delete(req.IDs)
	a.logger.Debug("rows deleted", "table", req.Table, "requested", len(req.IDs), "deleted", deleted)
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted, RequestID: requestID})
}

func (a *API) handleAddUser(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}
	if req.Name == "" || req.Password == "" {
		writeErrorStatus(w, http.StatusBadRequest, "name and password are required", requestID)
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeError(w, err, requestID)
		return
	}
	if err := a.auth.AddUser(req.Name, req.Password, role); err != nil {
		writeError(w, err, requestID)
		return
	}

	a.logger.Info("user added", "user", req.Name, "role", role)
	writeJSON(w, http.StatusCreated, StatusResponse{Status: "created"})
}

func (a *API) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodPost {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req RemoveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	if err := a.auth.RemoveUser(req.Name); err != nil {
		writeError(w, err, requestID)
		return
	}

	a.logger.Info("user removed", "user", req.Name)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "removed"})
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodGet {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}
	writeJSON(w, http.StatusOK, UsersResponse{Users: a.auth.Users()})
}
