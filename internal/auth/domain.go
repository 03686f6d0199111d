package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user account. A user can belong to many
// agencies; the membership records live in the members package.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
