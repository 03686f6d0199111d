package agencies

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Service wraps agency persistence with audit logging.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get fetches one agency.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Agency, error) {
	return s.repo.Get(ctx, id)
}

// ListForUser returns every agency the user is seated in.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Agency, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Create makes a new agency with the acting user as owner.
func (s *Service) Create(ctx context.Context, actorUserID uuid.UUID, name string) (*Agency, error) {
	agency, err := s.repo.CreateWithOwner(ctx, name, actorUserID)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorUserID: actorUserID,
			AgencyID:    agency.ID,
			Action:      "agency.create",
			Entity:      "agency",
			EntityID:    agency.ID.String(),
			Meta:        map[string]any{"name": name},
		})
	}
	return agency, nil
}

// IsMember reports whether the user is seated in the agency.
func (s *Service) IsMember(ctx context.Context, userID, agencyID uuid.UUID) (bool, error) {
	return s.repo.IsMember(ctx, userID, agencyID)
}
