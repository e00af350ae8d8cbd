// Package http provides the HTTP API for the quickset server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickset/quickset/internal/auth"
	qerr "github.com/quickset/quickset/internal/errors"
)

// Context keys for request metadata.
type contextKey string

const (
	// requestIDKey is the context key for the request ID.
	requestIDKey contextKey = "request_id"
	// roleKey is the context key for the authenticated role.
	roleKey contextKey = "role"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// RequestIDMiddleware adds a unique request_id to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := r.Context().Value(requestIDKey).(string)
				writeErrorStatus(w, http.StatusInternalServerError, "internal server error", requestID)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ContentTypeMiddleware sets the JSON content type for API responses.
func ContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ChainMiddleware chains multiple middleware functions together.
func ChainMiddleware(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// AuthMiddleware enforces the configured auth level for one operation class.
// When the manager does not require credentials for the class, requests pass
// through unauthenticated.
func AuthMiddleware(mgr *auth.Manager, op auth.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mgr.RequiresAuth(op) {
				next.ServeHTTP(w, r)
				return
			}

			requestID, _ := r.Context().Value(requestIDKey).(string)
			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="quickset"`)
				writeErrorStatus(w, http.StatusUnauthorized, "authentication required", requestID)
				return
			}

			role, ok := mgr.Authenticate(user, pass)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="quickset"`)
				writeErrorStatus(w, http.StatusUnauthorized, "invalid credentials", requestID)
				return
			}

			if !auth.Permits(role, op) {
				writeErrorStatus(w, http.StatusForbidden, "insufficient permissions", requestID)
				return
			}

			ctx := context.WithValue(r.Context(), roleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeErrorStatus writes a plain error response with an explicit status.
func writeErrorStatus(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:     message,
		RequestID: requestID,
	})
}

// writeError maps a structured error onto its HTTP status and writes it.
func writeError(w http.ResponseWriter, err error, requestID string) {
	resp := ErrorResponse{
		Error:     err.Error(),
		RequestID: requestID,
	}
	if code := qerr.GetCode(err); code != "" {
		resp.Code = code
	}
	var qe *qerr.Error
	if errors.As(err, &qe) {
		resp.Error = qe.Message
		resp.Details = qe.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(qerr.HTTPStatus(err))
	json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
