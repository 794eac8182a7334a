package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes returned to API callers.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeBadRequest    = "BAD_REQUEST"
	CodeForbidden     = "FORBIDDEN"
	CodeInternalError = "INTERNAL_ERROR"
)

// Error is the typed error carried across service boundaries. Code is
// stable for callers; Err keeps the underlying cause for logs.
type Error struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound - 404, resource missing or not visible to the tenant.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

// BadRequest - 400, invalid input or wrong state for the operation.
func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: message}
}

// Forbidden - 403, tenant isolation violation.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: message}
}

// Internal - 500, wraps an unexpected downstream failure.
func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternalError, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError renders err as the standard JSON error envelope. Errors
// that are not *Error are masked as INTERNAL_ERROR.
func WriteError(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal("unexpected error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Code: ae.Code, Message: ae.Message},
	})
}
