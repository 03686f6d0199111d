package roles

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

// Store adapts the repository to the permission resolver's RoleStore.
type Store struct {
	repo Repository
}

// NewStore wraps a repository for resolver consumption.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// ListMemberRoles implements permissions.RoleStore.
func (s *Store) ListMemberRoles(ctx context.Context, memberID uuid.UUID) ([]permissions.RoleGrant, error) {
	return s.repo.ListMemberRoles(ctx, memberID)
}

var _ permissions.RoleStore = (*Store)(nil)
