package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Dispatch error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"        // 401
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"      // 404
	ErrSlugAlreadyExists ErrorCode = "SLUG_ALREADY_EXISTS" // 409
	ErrConflict          ErrorCode = "CONFLICT"            // 409
	ErrRateLimited       ErrorCode = "RATE_LIMITED"        // 429
	ErrCancelled         ErrorCode = "CANCELLED"           // 499 (client closed request)
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrNotConfigured     ErrorCode = "NOT_CONFIGURED"      // 500
	ErrUpstream          ErrorCode = "UPSTREAM"            // 502
)

// DispatchError represents a structured error with code, status, and details.
type DispatchError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DispatchError {
	return &DispatchError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for missing or wrong admin credentials.
func NewUnauthorized(msg string) *DispatchError {
	if msg == "" {
		msg = "unauthorized"
	}
	return &DispatchError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error. kind names the missing resource ("article", "transcript", ...).
func NewNotFound(kind, identifier string) *DispatchError {
	return &DispatchError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file or directory on disk.
func NewFileNotFound(path string) *DispatchError {
	return &DispatchError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewSlugAlreadyExists creates a 409 error for article slug collisions.
func NewSlugAlreadyExists(slug string) *DispatchError {
	return &DispatchError{
		Code:    ErrSlugAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("article with slug %q already exists", slug),
		Details: map[string]any{"slug": slug},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *DispatchError {
	return &DispatchError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewRateLimited creates a 429 error carrying the number of seconds until the window resets.
func NewRateLimited(retryAfterSeconds int) *DispatchError {
	return &DispatchError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: "too many requests",
		Details: map[string]any{"retry_after_seconds": retryAfterSeconds},
	}
}

// NewCancelled creates a 499 error for work abandoned because the caller went away.
func NewCancelled(err error) *DispatchError {
	msg := "request cancelled"
	if err != nil {
		msg = err.Error()
	}
	return &DispatchError{
		Code:    ErrCancelled,
		Status:  499,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DispatchError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DispatchError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// NewNotConfigured creates a 500 error when a feature needs a key or setting that is absent.
func NewNotConfigured(setting string) *DispatchError {
	return &DispatchError{
		Code:    ErrNotConfigured,
		Status:  500,
		Message: fmt.Sprintf("%s is not configured", setting),
		Details: map[string]any{"setting": setting},
	}
}

// NewUpstream creates a 502 error for failures of a third-party API.
func NewUpstream(provider string, err error) *DispatchError {
	msg := "upstream request failed"
	if err != nil {
		msg = err.Error()
	}
	return &DispatchError{
		Code:    ErrUpstream,
		Status:  502,
		Message: fmt.Sprintf("%s: %s", provider, msg),
		Details: map[string]any{"provider": provider},
	}
}

// Is checks if an error (or anything it wraps) is a DispatchError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DispatchError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// From converts any error into a DispatchError.
// Context cancellation and deadline errors become CANCELLED; anything unknown becomes INTERNAL.
func From(err error) *DispatchError {
	if err == nil {
		return nil
	}
	var dErr *DispatchError
	if stderrors.As(err, &dErr) {
		return dErr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return NewCancelled(err)
	}
	return NewInternal(err)
}
