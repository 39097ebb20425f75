// Package errors provides error code definitions shared across the sync subsystem.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique, stable error code surfaced to API clients.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Storage errors
	ErrDatabase   ErrorCode = "DATABASE_ERROR"
	ErrMigration  ErrorCode = "MIGRATION_FAILED"
	ErrConstraint ErrorCode = "CONSTRAINT_VIOLATION"

	// Queue errors
	ErrQueueWrite   ErrorCode = "QUEUE_WRITE_FAILED"
	ErrQueueRead    ErrorCode = "QUEUE_READ_FAILED"
	ErrUnknownKind  ErrorCode = "UNKNOWN_ENTRY_KIND"
	ErrQueueCleared ErrorCode = "QUEUE_CLEARED"

	// Sync errors
	ErrSyncNotConfigured ErrorCode = "SYNC_NOT_CONFIGURED"
	ErrSyncFailed        ErrorCode = "SYNC_FAILED"
	ErrSyncInProgress    ErrorCode = "SYNC_IN_PROGRESS"
	ErrSyncOffline       ErrorCode = "SYNC_OFFLINE"
	ErrConflictStore     ErrorCode = "CONFLICT_STORE_FAILED"

	// Remote backend errors
	ErrBackendRequest  ErrorCode = "BACKEND_REQUEST_FAILED"
	ErrBackendRejected ErrorCode = "BACKEND_REJECTED"

	// Draft errors
	ErrDraftInvalid ErrorCode = "DRAFT_INVALID"
	ErrDraftExpired ErrorCode = "DRAFT_EXPIRED"

	// Configuration errors
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
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

// Is checks if an error anywhere in the chain carries a specific code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
