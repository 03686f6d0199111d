package members

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

var (
	ErrNotFound      = errors.New("member not found")
	ErrAlreadyExists = errors.New("member already exists")
	ErrForbidden     = errors.New("not allowed to manage this member")
	ErrLastOwner     = errors.New("agency must keep at least one owner")
)

// Member is one user's seat in one agency, joined with the user account for
// display.
type Member struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	AgencyID   uuid.UUID
	MemberType permissions.MemberType
	Email      string
	Name       string
	CreatedAt  time.Time
}

// Grant converts the member into the shape the permission resolver consumes.
func (m Member) Grant() permissions.Member {
	return permissions.Member{
		ID:         m.ID,
		UserID:     m.UserID,
		AgencyID:   m.AgencyID,
		MemberType: m.MemberType,
		Email:      m.Email,
		CreatedAt:  m.CreatedAt,
	}
}

// InviteRequest adds an existing user to an agency.
type InviteRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid4"`
	MemberType string `json:"member_type" validate:"omitempty,oneof=admin seated_user"`
}

// ChangeTierRequest re-tiers a member.
type ChangeTierRequest struct {
	MemberType string `json:"member_type" validate:"required,oneof=owner admin seated_user"`
}

// ListRequest filters the member listing for one agency.
type ListRequest struct {
	AgencyID uuid.UUID
	Page     int
	PerPage  int
}
