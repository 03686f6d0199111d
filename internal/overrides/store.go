package overrides

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

// Store adapts the repository to the permission resolver's OverrideStore.
type Store struct {
	repo Repository
}

// NewStore wraps a repository for resolver consumption.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// ListOverrides implements permissions.OverrideStore.
func (s *Store) ListOverrides(ctx context.Context, memberID uuid.UUID) (map[string]permissions.Override, error) {
	return s.repo.MapByMember(ctx, memberID)
}

var _ permissions.OverrideStore = (*Store)(nil)
