package roles

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Service validates role definitions against the permission catalog before
// they reach storage. The resolver itself never filters keys; the
// management boundary is where unknown keys are rejected.
type Service struct {
	repo    Repository
	members permissions.MemberStore
	audit   *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, members permissions.MemberStore, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, members: members, audit: audit}
}

// Get fetches one role.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	return s.repo.Get(ctx, id)
}

// List returns the agency's roles ordered by position.
func (s *Service) List(ctx context.Context, agencyID uuid.UUID) ([]Role, error) {
	return s.repo.ListByAgency(ctx, agencyID)
}

// Create stores a new role after catalog validation.
func (s *Service) Create(ctx context.Context, actorUserID, agencyID uuid.UUID, req CreateRoleRequest) (*Role, error) {
	if err := validateMaps(req.Permissions, req.SectionAccess); err != nil {
		return nil, err
	}

	role := Role{
		AgencyID:      agencyID,
		Name:          req.Name,
		Color:         req.Color,
		Icon:          req.Icon,
		Permissions:   permissions.PermissionSet(req.Permissions),
		SectionAccess: permissions.SectionSet(req.SectionAccess),
		Position:      req.Position,
	}
	if role.Permissions == nil {
		role.Permissions = permissions.PermissionSet{}
	}
	if role.SectionAccess == nil {
		role.SectionAccess = permissions.SectionSet{}
	}

	id, err := s.repo.Create(ctx, role)
	if err != nil {
		return nil, err
	}

	s.auditLog(ctx, actorUserID, agencyID, "role.create", id.String(), map[string]any{"name": req.Name})
	return s.repo.Get(ctx, id)
}

// Update replaces a role definition after catalog validation.
func (s *Service) Update(ctx context.Context, actorUserID, agencyID, roleID uuid.UUID, req UpdateRoleRequest) (*Role, error) {
	if err := validateMaps(req.Permissions, req.SectionAccess); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if existing.AgencyID != agencyID {
		return nil, ErrNotFound
	}

	existing.Name = req.Name
	existing.Color = req.Color
	existing.Icon = req.Icon
	existing.Permissions = permissions.PermissionSet(req.Permissions)
	existing.SectionAccess = permissions.SectionSet(req.SectionAccess)
	existing.Position = req.Position
	if existing.Permissions == nil {
		existing.Permissions = permissions.PermissionSet{}
	}
	if existing.SectionAccess == nil {
		existing.SectionAccess = permissions.SectionSet{}
	}

	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}

	s.auditLog(ctx, actorUserID, agencyID, "role.update", roleID.String(), map[string]any{"name": req.Name})
	return s.repo.Get(ctx, roleID)
}

// Delete removes an unassigned role.
func (s *Service) Delete(ctx context.Context, actorUserID, agencyID, roleID uuid.UUID) error {
	existing, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if existing.AgencyID != agencyID {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, roleID); err != nil {
		return err
	}

	s.auditLog(ctx, actorUserID, agencyID, "role.delete", roleID.String(), map[string]any{"name": existing.Name})
	return nil
}

// Assign attaches a role to a member of the same agency.
func (s *Service) Assign(ctx context.Context, actorUserID, agencyID, roleID, memberID uuid.UUID) error {
	if err := s.checkPair(ctx, agencyID, roleID, memberID); err != nil {
		return err
	}
	if err := s.repo.AssignToMember(ctx, roleID, memberID); err != nil {
		return err
	}
	s.auditLog(ctx, actorUserID, agencyID, "role.assign", roleID.String(), map[string]any{"member_id": memberID.String()})
	return nil
}

// Unassign detaches a role from a member.
func (s *Service) Unassign(ctx context.Context, actorUserID, agencyID, roleID, memberID uuid.UUID) error {
	if err := s.checkPair(ctx, agencyID, roleID, memberID); err != nil {
		return err
	}
	if err := s.repo.UnassignFromMember(ctx, roleID, memberID); err != nil {
		return err
	}
	s.auditLog(ctx, actorUserID, agencyID, "role.unassign", roleID.String(), map[string]any{"member_id": memberID.String()})
	return nil
}

// checkPair ensures role and member both belong to the acting agency.
func (s *Service) checkPair(ctx context.Context, agencyID, roleID, memberID uuid.UUID) error {
	role, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role.AgencyID != agencyID {
		return ErrNotFound
	}
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return ErrNotFound
	}
	if member.AgencyID != agencyID {
		return ErrNotFound
	}
	return nil
}

func validateMaps(perms map[string]bool, sections map[string]bool) error {
	for key := range perms {
		if !permissions.KnownKey(key) {
			return fmt.Errorf("%w: permission %q", ErrUnknownKey, key)
		}
	}
	for section := range sections {
		if !permissions.KnownSection(section) {
			return fmt.Errorf("%w: section %q", ErrUnknownKey, section)
		}
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
		Entity:      "role",
		EntityID:    entityID,
		Meta:        meta,
	})
}
