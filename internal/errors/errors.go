// Package errors provides coded application errors for LinkVault.
package errors

import "fmt"

// ErrorCode identifies a class of failure across package boundaries.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrParse      ErrorCode = "PARSE_ERROR"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Storage errors
	ErrDatabase ErrorCode = "DATABASE_ERROR"

	// Auth errors
	ErrAuthFailed ErrorCode = "AUTH_FAILED"
	ErrPermission ErrorCode = "PERMISSION_DENIED"

	// Sync errors
	ErrSyncFailed ErrorCode = "SYNC_FAILED"

	// Import/export errors
	ErrImportFailed ErrorCode = "IMPORT_FAILED"
	ErrExportFailed ErrorCode = "EXPORT_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}
