package permissions

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MemberStore looks up membership records.
type MemberStore interface {
	GetMember(ctx context.Context, id uuid.UUID) (Member, error)
	GetMemberByUserAndAgency(ctx context.Context, userID, agencyID uuid.UUID) (Member, error)
}

// RoleStore returns the roles assigned to a member, ordered by position
// ascending. Order is display-only; the merge is order independent.
type RoleStore interface {
	ListMemberRoles(ctx context.Context, memberID uuid.UUID) ([]RoleGrant, error)
}

// OverrideStore returns the per-member permission overrides keyed by
// permission key.
type OverrideStore interface {
	ListOverrides(ctx context.Context, memberID uuid.UUID) (map[string]Override, error)
}

// ResolutionRecorder receives the outcome of each resolution, for metrics.
type ResolutionRecorder interface {
	RecordResolution(outcome string)
}

// Resolution outcomes reported to the recorder.
const (
	OutcomeGodMode = "god_mode"
	OutcomeOwner   = "owner"
	OutcomeAdmin   = "admin"
	OutcomeMerged  = "merged"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// Config carries process-wide resolver settings, injected once at startup.
type Config struct {
	// GodModeEmails bypass all resolution and receive the owner map.
	// Compared case-insensitively.
	GodModeEmails []string
	Logger        *slog.Logger
	Recorder      ResolutionRecorder
}

// Resolver computes effective permissions for agency members. Every lookup
// failure degrades to the most restrictive answer; the public surface never
// returns an error for missing or unreachable data.
type Resolver struct {
	members   MemberStore
	roles     RoleStore
	overrides OverrideStore
	godMode   map[string]struct{}
	logger    *slog.Logger
	recorder  ResolutionRecorder
}

// NewResolver constructs a Resolver.
func NewResolver(members MemberStore, roles RoleStore, overrides OverrideStore, cfg Config) *Resolver {
	godMode := make(map[string]struct{}, len(cfg.GodModeEmails))
	for _, email := range cfg.GodModeEmails {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}
		godMode[email] = struct{}{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		members:   members,
		roles:     roles,
		overrides: overrides,
		godMode:   godMode,
		logger:    logger,
		recorder:  cfg.Recorder,
	}
}

// IsGodMode reports whether email belongs to the configured bypass set.
func (r *Resolver) IsGodMode(email string) bool {
	if email == "" {
		return false
	}
	_, ok := r.godMode[normalizeEmail(email)]
	return ok
}

// Resolve computes the effective permission map for a member. The email is
// optional; when it matches the god-mode set the member record is never
// consulted. A missing member or a store failure yields an empty map.
func (r *Resolver) Resolve(ctx context.Context, memberID uuid.UUID, email string) PermissionSet {
	if r.IsGodMode(email) {
		r.record(OutcomeGodMode)
		return OwnerPermissions()
	}

	member, ok := r.lookupMember(ctx, memberID)
	if !ok {
		r.record(OutcomeMissing)
		return PermissionSet{}
	}

	if r.IsGodMode(member.Email) {
		r.record(OutcomeGodMode)
		return OwnerPermissions()
	}

	switch member.MemberType {
	case MemberTypeOwner:
		r.record(OutcomeOwner)
		return OwnerPermissions()
	case MemberTypeAdmin:
		r.record(OutcomeAdmin)
		return AdminPermissions()
	}

	roles, overrides, ok := r.fetchGrants(ctx, member.ID)
	if !ok {
		r.record(OutcomeError)
		return PermissionSet{}
	}

	r.record(OutcomeMerged)
	return ApplyOverrides(MergeRolePermissions(roles), overrides)
}

// HasPermission reports whether the member resolves key to true.
func (r *Resolver) HasPermission(ctx context.Context, memberID uuid.UUID, key, email string) bool {
	return r.Resolve(ctx, memberID, email).Value(key)
}

// HasAnyPermission reports whether at least one key resolves to true.
func (r *Resolver) HasAnyPermission(ctx context.Context, memberID uuid.UUID, keys []string, email string) bool {
	resolved := r.Resolve(ctx, memberID, email)
	for _, key := range keys {
		if resolved.Value(key) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every key resolves to true.
func (r *Resolver) HasAllPermissions(ctx context.Context, memberID uuid.UUID, keys []string, email string) bool {
	resolved := r.Resolve(ctx, memberID, email)
	for _, key := range keys {
		if !resolved.Value(key) {
			return false
		}
	}
	return true
}

// SectionAccess computes the visible UI sections for a member. Tier
// short-circuits mirror Resolve; seated members merge role section maps.
// Sections carry no override layer.
func (r *Resolver) SectionAccess(ctx context.Context, memberID uuid.UUID, email string) SectionSet {
	if r.IsGodMode(email) {
		return AllSections()
	}

	member, ok := r.lookupMember(ctx, memberID)
	if !ok {
		return SectionSet{}
	}

	if r.IsGodMode(member.Email) || member.MemberType == MemberTypeOwner || member.MemberType == MemberTypeAdmin {
		return AllSections()
	}

	roles, err := r.roles.ListMemberRoles(ctx, member.ID)
	if err != nil {
		r.logger.Warn("permissions: list member roles", slog.String("member_id", member.ID.String()), slog.Any("error", err))
		return SectionSet{}
	}
	return MergeSectionAccess(roles)
}

// CanManageMember reports whether the manager identified by (userID,
// agencyID) may administer the target member. Owners manage anyone, admins
// manage seated members only, seated members manage nobody. Unknown
// manager, unknown target or an agency mismatch all answer false.
func (r *Resolver) CanManageMember(ctx context.Context, managerUserID, agencyID, targetMemberID uuid.UUID) bool {
	manager, err := r.members.GetMemberByUserAndAgency(ctx, managerUserID, agencyID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("permissions: manager lookup", slog.Any("error", err))
		}
		return false
	}

	target, ok := r.lookupMember(ctx, targetMemberID)
	if !ok || target.AgencyID != manager.AgencyID {
		return false
	}

	switch manager.MemberType {
	case MemberTypeOwner:
		return true
	case MemberTypeAdmin:
		return target.MemberType == MemberTypeSeated
	}
	return false
}

func (r *Resolver) lookupMember(ctx context.Context, memberID uuid.UUID) (Member, bool) {
	member, err := r.members.GetMember(ctx, memberID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("permissions: member lookup", slog.String("member_id", memberID.String()), slog.Any("error", err))
		}
		return Member{}, false
	}
	return member, true
}

// fetchGrants fans out the two independent reads and joins both before the
// merge. Either failing degrades the whole resolution to empty rather than
// merging a partial picture: a lost deny-override must never widen access.
func (r *Resolver) fetchGrants(ctx context.Context, memberID uuid.UUID) ([]RoleGrant, map[string]Override, bool) {
	var (
		roles     []RoleGrant
		overrides map[string]Override
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = r.roles.ListMemberRoles(gctx, memberID)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = r.overrides.ListOverrides(gctx, memberID)
		return err
	})
	if err := g.Wait(); err != nil {
		r.logger.Warn("permissions: fetch grants", slog.String("member_id", memberID.String()), slog.Any("error", err))
		return nil, nil, false
	}
	return roles, overrides, true
}

func (r *Resolver) record(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordResolution(outcome)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
