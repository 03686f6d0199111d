package permissions

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates that a store lookup matched no record.
var ErrNotFound = errors.New("permissions: not found")

// MemberType is the coarse authority tier of a member within one agency.
// Exactly one tier exists per (user, agency) pair. The tier is orthogonal
// to roles: owner and admin short-circuit resolution entirely, seated
// members are resolved from roles and overrides.
type MemberType string

const (
	MemberTypeOwner  MemberType = "owner"
	MemberTypeAdmin  MemberType = "admin"
	MemberTypeSeated MemberType = "seated_user"
)

// Valid reports whether the tier is one of the known values.
func (t MemberType) Valid() bool {
	switch t {
	case MemberTypeOwner, MemberTypeAdmin, MemberTypeSeated:
		return true
	}
	return false
}

// Member is one user's relationship to one agency.
type Member struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	AgencyID   uuid.UUID
	MemberType MemberType
	Email      string
	CreatedAt  time.Time
}

// RoleGrant is the slice of a role the resolver consumes: its permission
// map, its section-access map and the display position. Presentation
// attributes (name, color, icon) live in the roles package.
type RoleGrant struct {
	ID            uuid.UUID
	Permissions   PermissionSet
	SectionAccess SectionSet
	Position      int
}

// Override is a per-member exception for a single permission key. Value is
// authoritative regardless of role grants. Reason is audit-only.
type Override struct {
	Value  bool
	Reason string
}

// PermissionSet maps permission key to granted. A missing key reads as
// false; Value makes that default explicit.
type PermissionSet map[string]bool

// Value returns the grant for key, false when absent.
func (s PermissionSet) Value(key string) bool {
	return s[key]
}

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SectionSet maps section name to visible. Missing sections read as hidden.
type SectionSet map[string]bool

// Value returns the visibility for section, false when absent.
func (s SectionSet) Value(section string) bool {
	return s[section]
}

// Clone returns an independent copy.
func (s SectionSet) Clone() SectionSet {
	out := make(SectionSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
