// Package errors provides structured error types for quickset. All errors
// include a category, code, message, and a details map so callers and the
// HTTP layer can react to them consistently.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryTable    ErrorCategory = "TABLE"
	ErrCategorySchema   ErrorCategory = "SCHEMA"
	ErrCategoryQuery    ErrorCategory = "QUERY"
	ErrCategoryAuth     ErrorCategory = "AUTH"
	ErrCategorySource   ErrorCategory = "SOURCE"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Table codes
	CodeTableNotFound      = "TABLE_NOT_FOUND"
	CodeTableAlreadyExists = "TABLE_ALREADY_EXISTS"
	CodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	CodeDuplicateID        = "DUPLICATE_ID"
	CodeRowNotFound        = "ROW_NOT_FOUND"

	// Schema codes
	CodeColumnNotFound = "COLUMN_NOT_FOUND"
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
	CodeInvalidSchema  = "INVALID_SCHEMA"

	// Query codes
	CodeIndexUnavailable = "INDEX_UNAVAILABLE"
	CodeInvalidQuery     = "INVALID_QUERY"

	// Auth codes
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeUserAlreadyExists = "USER_ALREADY_EXISTS"
	CodeUserNotFound      = "USER_NOT_FOUND"

	// Source codes
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeSourceBadData     = "SOURCE_BAD_DATA"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Error is the structured error type used throughout the system.
type Error struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Error.
func New(category ErrorCategory, code, message string) *Error {
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *Error {
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not an *Error.
func GetCategory(err error) ErrorCategory {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not an *Error.
func GetCode(err error) string {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// HTTPStatus maps an error to the HTTP status code the API responds with.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var qe *Error
	if !errors.As(err, &qe) {
		return http.StatusInternalServerError
	}
	switch qe.Code {
	case CodeTableNotFound, CodeRowNotFound, CodeColumnNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeTableAlreadyExists, CodeDuplicateID, CodeUserAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Convenience constructors for the common errors.

// NewTableNotFound reports a lookup of a table name that was never created.
func NewTableNotFound(table string) *Error {
	return New(ErrCategoryTable, CodeTableNotFound,
		fmt.Sprintf("table %q not found", table)).
		WithDetails(map[string]interface{}{"table": table})
}

// NewTableAlreadyExists reports a create for a name already registered.
func NewTableAlreadyExists(table string) *Error {
	return New(ErrCategoryTable, CodeTableAlreadyExists,
		fmt.Sprintf("table %q already exists", table)).
		WithDetails(map[string]interface{}{"table": table})
}

// NewColumnNotFound reports a reference to a column the schema lacks.
func NewColumnNotFound(table, column string) *Error {
	return New(ErrCategorySchema, CodeColumnNotFound,
		fmt.Sprintf("column %q not found in table %q", column, table)).
		WithDetails(map[string]interface{}{"table": table, "column": column})
}

// NewSchemaMismatch reports a row value whose type does not match its column.
func NewSchemaMismatch(column, expected, actual string) *Error {
	return New(ErrCategorySchema, CodeSchemaMismatch,
		fmt.Sprintf("column %q expects %s, got %s", column, expected, actual)).
		WithDetails(map[string]interface{}{
			"column":   column,
			"expected": expected,
			"actual":   actual,
		})
}

// NewCapacityExceeded reports an insert that would push a table past its cap.
func NewCapacityExceeded(table string, capacity, attempted int) *Error {
	return New(ErrCategoryTable, CodeCapacityExceeded,
		fmt.Sprintf("table %q capacity %d exceeded (attempted size %d)", table, capacity, attempted)).
		WithDetails(map[string]interface{}{
			"table":     table,
			"capacity":  capacity,
			"attempted": attempted,
		})
}

// NewDuplicateID reports an insert reusing an existing row identifier.
func NewDuplicateID(table string, id int64) *Error {
	return New(ErrCategoryTable, CodeDuplicateID,
		fmt.Sprintf("row id %d already exists in table %q", id, table)).
		WithDetails(map[string]interface{}{"table": table, "id": id})
}

// NewRowNotFound reports an update targeting an id with no stored row.
func NewRowNotFound(table string, id int64) *Error {
	return New(ErrCategoryTable, CodeRowNotFound,
		fmt.Sprintf("row id %d not found in table %q", id, table)).
		WithDetails(map[string]interface{}{"table": table, "id": id})
}

// NewIndexUnavailable reports a search mode the column is not indexed for.
func NewIndexUnavailable(table, column, mode string) *Error {
	return New(ErrCategoryQuery, CodeIndexUnavailable,
		fmt.Sprintf("column %q of table %q has no %s index", column, table, mode)).
		WithDetails(map[string]interface{}{
			"table":  table,
			"column": column,
			"mode":   mode,
		})
}

// NewInvalidQuery reports malformed or missing search parameters.
func NewInvalidQuery(message string) *Error {
	return New(ErrCategoryQuery, CodeInvalidQuery, message)
}

// NewInvalidSchema reports a table definition that cannot be constructed.
func NewInvalidSchema(message string) *Error {
	return New(ErrCategorySchema, CodeInvalidSchema, message)
}

// NewSourceError wraps a failure from an external sync source.
func NewSourceError(code, message string, cause error) *Error {
	return Wrap(ErrCategorySource, code, message, cause)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
