package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Name         string
	Email        string
	Role         string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
