package overrides

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("overrides: override not found")
	ErrUnknownKey = errors.New("overrides: unknown permission key")
)

// MemberOverride is a per-member exception for one permission key. Value is
// authoritative in both directions; the reason is kept for the audit trail.
type MemberOverride struct {
	MemberID      uuid.UUID
	PermissionKey string
	Value         bool
	Reason        string
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetRequest creates or replaces an override for one key.
type SetRequest struct {
	PermissionKey string `json:"permission_key" validate:"required"`
	Value         *bool  `json:"value" validate:"required"`
	Reason        string `json:"reason" validate:"required,max=500"`
}
