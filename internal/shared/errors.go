package shared

import (
	"errors"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// SafeError carries a message that may be shown to end users verbatim.
type SafeError struct {
	Message string
	Err     error
}

func (e *SafeError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *SafeError) Unwrap() error {
	return e.Err
}

// NewSafeError wraps err (usually a sentinel) with a user facing message.
func NewSafeError(err error, message string) error {
	return &SafeError{Message: message, Err: err}
}

// UserSafeMessage returns text suitable for a flash or form banner.
// Unexpected errors collapse to a generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var safe *SafeError
	if errors.As(err, &safe) {
		return safe.Message
	}
	switch {
	case errors.Is(err, httpx.ErrNotFound):
		return "The requested record no longer exists."
	case errors.Is(err, httpx.ErrDuplicate):
		return "A record with the same identifier already exists."
	case errors.Is(err, httpx.ErrForbidden):
		return "You are not allowed to perform this action."
	case errors.Is(err, httpx.ErrConflict):
		return "The record changed state and cannot be modified."
	case errors.Is(err, httpx.ErrValidation):
		return "Please correct the highlighted fields."
	}
	return "Something went wrong while saving. No changes were made."
}
