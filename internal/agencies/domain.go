package agencies

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("agencies: agency not found")

// Agency is a tenant. Every member, role and override hangs off exactly one
// agency.
type Agency struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// CreateRequest carries a new agency definition.
type CreateRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}
