package users

import (
	"errors"
	"time"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

var (
	// ErrNotFound is returned when the user does not exist.
	ErrNotFound = httpx.ErrNotFound
	// ErrSelfDeactivate prevents admins from locking themselves out.
	ErrSelfDeactivate = shared.NewSafeError(httpx.ErrConflict, "You cannot deactivate your own account.")
	errEmailTaken     = errors.New("email already registered")
)

// User represents a user account for management.
type User struct {
	ID          int64
	Email       string
	Name        string
	Role        string
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserForm carries the create/edit form input.
type UserForm struct {
	Name     string `form:"name" validate:"required,max=120"`
	Email    string `form:"email" validate:"required,email,max=200"`
	Role     string `form:"role" validate:"required,oneof=admin manager sales"`
	Password string `form:"password" validate:"omitempty,min=8,max=72"`
	IsActive bool   `form:"is_active"`
}
