// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal    = "INTERNAL_ERROR"
	CodePersistence = "PERSISTENCE_FAILURE"
	CodeTimeout     = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidQuantity = "INVALID_QUANTITY"
	CodeMissingActor    = "MISSING_ACTOR"
	CodeMissingColumn   = "MISSING_REQUIRED_COLUMN"

	// Business rule violations (422)
	CodeMissingBranchContext = "MISSING_BRANCH_CONTEXT"
	CodeEmptyReport          = "EMPTY_REPORT"
	CodePartialSnapshot      = "PARTIAL_SNAPSHOT_FAILURE"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict        = "CONFLICT"
	CodeDuplicatePeriod = "DUPLICATE_PERIOD"
	CodeLostUpdate      = "LOST_UPDATE_CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewMissingBranchContext creates the error for operations where no branch
// could be resolved. Non-retryable: it signals a data/authorization gap.
func NewMissingBranchContext() *AppError {
	return &AppError{
		Code:       CodeMissingBranchContext,
		Message:    "no branch assigned",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInvalidQuantity creates a caller-input error for a negative count.
func NewInvalidQuantity(quantity int64) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    "counted quantity must be non-negative",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"quantity": quantity},
	}
}

// NewMissingActor indicates an upstream session bug: no acting user identity.
func NewMissingActor() *AppError {
	return &AppError{
		Code:       CodeMissingActor,
		Message:    "acting user is required",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewMissingColumn names the reconciliation input column that could not be
// identified in the uploaded file.
func NewMissingColumn(column string) *AppError {
	return &AppError{
		Code:       CodeMissingColumn,
		Message:    fmt.Sprintf("required column %q not found", column),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"column": column},
	}
}

// NewDuplicatePeriod names the already-archived period blocking a snapshot.
func NewDuplicatePeriod(branchID int64, month, year int) *AppError {
	return &AppError{
		Code:       CodeDuplicatePeriod,
		Message:    fmt.Sprintf("a monthly report for %02d/%d already exists", month, year),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"branch_id": branchID, "month": month, "year": year},
	}
}

// NewEmptyReport rejects a snapshot attempted with zero reconciliation rows.
func NewEmptyReport() *AppError {
	return &AppError{
		Code:       CodeEmptyReport,
		Message:    "report has no rows to archive",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewLostUpdate creates the retryable conflict signal for concurrent counts
// against the same (product, branch) pair.
func NewLostUpdate(productID, branchID int64) *AppError {
	return &AppError{
		Code:       CodeLostUpdate,
		Message:    "concurrent count detected, retry the operation",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"product_id": productID, "branch_id": branchID},
	}
}

// NewPartialSnapshot reports which snapshot step failed and what was already
// applied. Never auto-retried; requires operator attention.
func NewPartialSnapshot(step string, err error) *AppError {
	return &AppError{
		Code:       CodePartialSnapshot,
		Message:    fmt.Sprintf("snapshot failed at step %q", step),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"step": step},
		Err:        err,
	}
}

// NewPersistence wraps an underlying storage error with operation context.
func NewPersistence(operation string, err error) *AppError {
	return &AppError{
		Code:       CodePersistence,
		Message:    fmt.Sprintf("storage operation %q failed", operation),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": operation},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks if error carries the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsLostUpdate checks if error is the retryable concurrency conflict.
func IsLostUpdate(err error) bool {
	return IsCode(err, CodeLostUpdate)
}

// IsDuplicatePeriod checks if error is CodeDuplicatePeriod.
func IsDuplicatePeriod(err error) bool {
	return IsCode(err, CodeDuplicatePeriod)
}
