package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// ManagerChecker answers whether an acting user may administer a target
// member. Satisfied by the permission resolver.
type ManagerChecker interface {
	CanManageMember(ctx context.Context, managerUserID, agencyID, targetMemberID uuid.UUID) bool
}

// Service applies the management-hierarchy policy on top of the repository.
type Service struct {
	repo    Repository
	manager ManagerChecker
	audit   *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, manager ManagerChecker, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, manager: manager, audit: audit}
}

// Get fetches one member.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.repo.Get(ctx, id)
}

// List returns one agency's members with pagination metadata.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Member, shared.Pagination, error) {
	members, total, err := s.repo.ListByAgency(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return members, shared.NewPagination(req.Page, req.PerPage, total), nil
}

// Invite seats an existing user in the agency. New members default to the
// seated tier; only the tier policy below can raise them afterwards.
func (s *Service) Invite(ctx context.Context, actorUserID, agencyID, userID uuid.UUID, memberType permissions.MemberType) (*Member, error) {
	if memberType == "" {
		memberType = permissions.MemberTypeSeated
	}
	if !memberType.Valid() || memberType == permissions.MemberTypeOwner {
		return nil, fmt.Errorf("invalid member type %q", memberType)
	}

	id, err := s.repo.Create(ctx, Member{UserID: userID, AgencyID: agencyID, MemberType: memberType})
	if err != nil {
		return nil, err
	}

	s.auditLog(ctx, actorUserID, agencyID, "member.invite", id.String(), map[string]any{
		"user_id":     userID.String(),
		"member_type": string(memberType),
	})
	return s.repo.Get(ctx, id)
}

// ChangeTier re-tiers a member after the management-hierarchy check. Only
// owners may grant the owner tier, so an admin can never raise a member
// above the admin's own authority. An agency can never lose its last owner.
func (s *Service) ChangeTier(ctx context.Context, actorUserID, agencyID, memberID uuid.UUID, memberType permissions.MemberType) (*Member, error) {
	if !memberType.Valid() {
		return nil, fmt.Errorf("invalid member type %q", memberType)
	}
	if !s.manager.CanManageMember(ctx, actorUserID, agencyID, memberID) {
		return nil, ErrForbidden
	}
	if memberType == permissions.MemberTypeOwner {
		actor, err := s.repo.GetByUserAndAgency(ctx, actorUserID, agencyID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrForbidden
			}
			return nil, err
		}
		if actor.MemberType != permissions.MemberTypeOwner {
			return nil, ErrForbidden
		}
	}

	target, err := s.repo.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if target.MemberType == permissions.MemberTypeOwner && memberType != permissions.MemberTypeOwner {
		owners, err := s.repo.CountOwners(ctx, agencyID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}

	if err := s.repo.UpdateMemberType(ctx, memberID, memberType); err != nil {
		return nil, err
	}

	s.auditLog(ctx, actorUserID, agencyID, "member.change_tier", memberID.String(), map[string]any{
		"from": string(target.MemberType),
		"to":   string(memberType),
	})
	return s.repo.Get(ctx, memberID)
}

// Remove unseats a member after the management-hierarchy check.
func (s *Service) Remove(ctx context.Context, actorUserID, agencyID, memberID uuid.UUID) error {
	if !s.manager.CanManageMember(ctx, actorUserID, agencyID, memberID) {
		return ErrForbidden
	}

	target, err := s.repo.Get(ctx, memberID)
	if err != nil {
		return err
	}
	if target.MemberType == permissions.MemberTypeOwner {
		owners, err := s.repo.CountOwners(ctx, agencyID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	if err := s.repo.Delete(ctx, memberID); err != nil {
		return err
	}

	s.auditLog(ctx, actorUserID, agencyID, "member.remove", memberID.String(), map[string]any{
		"user_id": target.UserID.String(),
	})
	return nil
}

func (s *Service) auditLog(ctx context.Context, actorUserID, agencyID uuid.UUID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorUserID: actorUserID,
		AgencyID:    agencyID,
		Action:      action,
		Entity:      "member",
		EntityID:    entityID,
		Meta:        meta,
	})
}
