package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Medley error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrEmptyWindow       ErrorCode = "EMPTY_WINDOW"       // 404 (empty-state signal, not a failure)
	ErrStaleResult       ErrorCode = "STALE_RESULT"       // 409 (internal: dropped, never surfaced)
	ErrStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"  // 503
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE" // 503
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// MedleyError represents a structured error with code, status, and details.
type MedleyError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *MedleyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MedleyError {
	return &MedleyError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing note or category.
func NewNotFound(identifier string) *MedleyError {
	return &MedleyError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewEmptyWindow creates the empty-state signal for a category with no
// eligible notes.
func NewEmptyWindow(category string) *MedleyError {
	return &MedleyError{
		Code:    ErrEmptyWindow,
		Status:  404,
		Message: fmt.Sprintf("no playable notes in category %q", category),
		Details: map[string]any{"category": category},
	}
}

// NewStaleResult creates the error used to drop results from a cancelled
// filter generation.
func NewStaleResult(generation int64) *MedleyError {
	return &MedleyError{
		Code:    ErrStaleResult,
		Status:  409,
		Message: fmt.Sprintf("result from stale filter generation %d", generation),
		Details: map[string]any{"generation": generation},
	}
}

// NewStoreUnavailable creates a 503 error for a failed cache open/read/write.
func NewStoreUnavailable(err error) *MedleyError {
	msg := "persistent cache unavailable"
	if err != nil {
		msg = fmt.Sprintf("persistent cache unavailable: %v", err)
	}
	return &MedleyError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewSourceUnavailable creates a 503 error for an unreachable event source.
func NewSourceUnavailable(relay string, err error) *MedleyError {
	return &MedleyError{
		Code:    ErrSourceUnavailable,
		Status:  503,
		Message: fmt.Sprintf("event source unavailable: %s: %v", relay, err),
		Details: map[string]any{"relay": relay},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the underlying error is kept in Details for
// logging so it is never exposed to clients.
func NewInternal(err error) *MedleyError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &MedleyError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (possibly wrapped) is a MedleyError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MedleyError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}
