package roles

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

var (
	ErrNotFound   = errors.New("roles: role not found")
	ErrInUse      = errors.New("roles: role is still assigned to members")
	ErrUnknownKey = errors.New("roles: unknown permission or section key")
)

// Role is an agency-scoped bundle of permission grants and section
// visibility, plus the presentation attributes the role picker shows.
type Role struct {
	ID            uuid.UUID
	AgencyID      uuid.UUID
	Name          string
	Color         string
	Icon          string
	Permissions   permissions.PermissionSet
	SectionAccess permissions.SectionSet
	Position      int
	MemberCount   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Grant returns the slice of the role the permission resolver consumes.
func (r Role) Grant() permissions.RoleGrant {
	return permissions.RoleGrant{
		ID:            r.ID,
		Permissions:   r.Permissions,
		SectionAccess: r.SectionAccess,
		Position:      r.Position,
	}
}

// CreateRoleRequest carries a new role definition.
type CreateRoleRequest struct {
	Name          string          `json:"name" validate:"required,max=80"`
	Color         string          `json:"color" validate:"omitempty,hexcolor"`
	Icon          string          `json:"icon" validate:"omitempty,max=40"`
	Permissions   map[string]bool `json:"permissions"`
	SectionAccess map[string]bool `json:"section_access"`
	Position      int             `json:"position" validate:"gte=0"`
}

// UpdateRoleRequest carries a full replacement of a role definition.
type UpdateRoleRequest struct {
	Name          string          `json:"name" validate:"required,max=80"`
	Color         string          `json:"color" validate:"omitempty,hexcolor"`
	Icon          string          `json:"icon" validate:"omitempty,max=40"`
	Permissions   map[string]bool `json:"permissions"`
	SectionAccess map[string]bool `json:"section_access"`
	Position      int             `json:"position" validate:"gte=0"`
}

// AssignRequest names the member a role is assigned to or removed from.
type AssignRequest struct {
	MemberID string `json:"member_id" validate:"required,uuid4"`
}
