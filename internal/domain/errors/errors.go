package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes shared by the ledger engine and its callers
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeTenant           = "TENANT_ERROR"
	CodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive  = "ACCOUNT_INACTIVE"
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodePersistence      = "PERSISTENCE_ERROR"
	CodeNumberConflict   = "NUMBER_CONFLICT"
	CodeDuplicatePosting = "DUPLICATE_POSTING"
)

// Sentinels for errors.Is checks. AppError.Is matches on Code only, so any
// AppError built by the constructors below matches its sentinel.
var (
	ErrAccountNotFound  = AppError{Code: CodeAccountNotFound}
	ErrAccountInactive  = AppError{Code: CodeAccountInactive}
	ErrDocumentNotFound = AppError{Code: CodeDocumentNotFound}
	ErrPersistence      = AppError{Code: CodePersistence}
	ErrNumberConflict   = AppError{Code: CodeNumberConflict}
	ErrDuplicatePosting = AppError{Code: CodeDuplicatePosting}
	ErrNotFound         = AppError{Code: CodeNotFound}
	ErrConflict         = AppError{Code: CodeConflict}
	ErrValidation       = AppError{Code: CodeValidation}
)

// AppError is a custom error type for application errors
type AppError struct {
	Code       string
	Message    string
	StatusCode int // Same rule as HTTP status codes
	Err        error
	Details    map[string]interface{}
}

// Error returns a string representation of the error
func (e AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is implements the errors.Is interface
func (e AppError) Is(target error) bool {
	if target, ok := target.(AppError); ok {
		return target.Code == e.Code
	}
	return false
}

// Unwrap returns the underlying error
func (e AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e AppError) WithDetails(details map[string]interface{}) AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e AppError) WithDetail(key string, value interface{}) AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(message string) AppError {
	return AppError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message string, err error) AppError {
	return AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) AppError {
	return AppError{
		Code:       CodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) AppError {
	return AppError{
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) AppError {
	return AppError{
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTenantError creates a new tenant-related error
func NewTenantError(message string) AppError {
	return AppError{
		Code:       CodeTenant,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewAccountNotFoundError reports a chart-of-accounts entry missing for a tenant.
// It is a setup defect of the tenant, not a problem with the posted document.
func NewAccountNotFoundError(tenantID, code string) AppError {
	return AppError{
		Code:       CodeAccountNotFound,
		Message:    fmt.Sprintf("ledger account %s is not configured for tenant %s", code, tenantID),
		StatusCode: http.StatusUnprocessableEntity,
		Details:    map[string]interface{}{"tenantId": tenantID, "accountCode": code},
	}
}

// NewAccountInactiveError reports a chart-of-accounts entry that was deactivated
func NewAccountInactiveError(tenantID, code string) AppError {
	return AppError{
		Code:       CodeAccountInactive,
		Message:    fmt.Sprintf("ledger account %s is inactive for tenant %s", code, tenantID),
		StatusCode: http.StatusUnprocessableEntity,
		Details:    map[string]interface{}{"tenantId": tenantID, "accountCode": code},
	}
}

// NewDocumentNotFoundError reports a triggering document that is absent or owned by another tenant
func NewDocumentNotFoundError(source, documentID string) AppError {
	return AppError{
		Code:       CodeDocumentNotFound,
		Message:    fmt.Sprintf("%s %s not found", source, documentID),
		StatusCode: http.StatusNotFound,
		Details:    map[string]interface{}{"source": source, "documentId": documentID},
	}
}

// NewPersistenceError wraps a storage failure during a ledger write
func NewPersistenceError(message string, err error) AppError {
	return AppError{
		Code:       CodePersistence,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewNumberConflictError reports a transaction number already taken in the tenant
func NewNumberConflictError(number string) AppError {
	return AppError{
		Code:       CodeNumberConflict,
		Message:    fmt.Sprintf("transaction number %s already assigned", number),
		StatusCode: http.StatusConflict,
	}
}

// NewDuplicatePostingError reports a second posting for the same source document
func NewDuplicatePostingError(source, sourceID string) AppError {
	return AppError{
		Code:       CodeDuplicatePosting,
		Message:    fmt.Sprintf("%s %s is already posted", source, sourceID),
		StatusCode: http.StatusConflict,
	}
}

// IsConfigurationError reports whether err means the tenant's chart of accounts is incomplete
func IsConfigurationError(err error) bool {
	return stderrors.Is(err, ErrAccountNotFound) || stderrors.Is(err, ErrAccountInactive)
}

// IsNotFound reports whether err is any of the not-found errors
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound) ||
		stderrors.Is(err, ErrAccountNotFound) ||
		stderrors.Is(err, ErrDocumentNotFound)
}

// As converts err to an AppError, wrapping unknown errors as internal errors
func As(err error) AppError {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("An unexpected error occurred", err)
}
