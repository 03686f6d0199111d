package members

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

// Store adapts the repository to the permission resolver's MemberStore.
type Store struct {
	repo Repository
}

// NewStore wraps a repository for resolver consumption.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// GetMember implements permissions.MemberStore.
func (s *Store) GetMember(ctx context.Context, id uuid.UUID) (permissions.Member, error) {
	member, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return permissions.Member{}, permissions.ErrNotFound
		}
		return permissions.Member{}, err
	}
	return member.Grant(), nil
}

// GetMemberByUserAndAgency implements permissions.MemberStore.
func (s *Store) GetMemberByUserAndAgency(ctx context.Context, userID, agencyID uuid.UUID) (permissions.Member, error) {
	member, err := s.repo.GetByUserAndAgency(ctx, userID, agencyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return permissions.Member{}, permissions.ErrNotFound
		}
		return permissions.Member{}, err
	}
	return member.Grant(), nil
}

var _ permissions.MemberStore = (*Store)(nil)
