package overrides

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Service validates overrides against the permission catalog before they
// reach storage and records every change in the audit trail. Overrides are
// the sharpest tool in the access model, so the reason field is mandatory.
type Service struct {
	repo    Repository
	members permissions.MemberStore
	audit   *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, members permissions.MemberStore, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, members: members, audit: audit}
}

// List returns one member's overrides ordered by permission key.
func (s *Service) List(ctx context.Context, agencyID, memberID uuid.UUID) ([]MemberOverride, error) {
	if err := s.checkMember(ctx, agencyID, memberID); err != nil {
		return nil, err
	}
	return s.repo.ListByMember(ctx, memberID)
}

// Set creates or replaces an override for one key.
func (s *Service) Set(ctx context.Context, actorUserID, agencyID, memberID uuid.UUID, key string, value bool, reason string) error {
	if !permissions.KnownKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := s.checkMember(ctx, agencyID, memberID); err != nil {
		return err
	}

	err := s.repo.Upsert(ctx, MemberOverride{
		MemberID:      memberID,
		PermissionKey: key,
		Value:         value,
		Reason:        reason,
		CreatedBy:     actorUserID,
	})
	if err != nil {
		return err
	}

	s.auditLog(ctx, actorUserID, agencyID, "override.set", memberID.String(), map[string]any{
		"permission_key": key,
		"value":          value,
		"reason":         reason,
	})
	return nil
}

// Clear removes an override, returning the key to role-derived resolution.
func (s *Service) Clear(ctx context.Context, actorUserID, agencyID, memberID uuid.UUID, key string) error {
	if err := s.checkMember(ctx, agencyID, memberID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, memberID, key); err != nil {
		return err
	}

	s.auditLog(ctx, actorUserID, agencyID, "override.clear", memberID.String(), map[string]any{
		"permission_key": key,
	})
	return nil
}

func (s *Service) checkMember(ctx context.Context, agencyID, memberID uuid.UUID) error {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return ErrNotFound
	}
	if member.AgencyID != agencyID {
		return ErrNotFound
	}
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
		Entity:      "member_override",
		EntityID:    entityID,
		Meta:        meta,
	})
}
