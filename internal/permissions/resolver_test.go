package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStores struct {
	members   map[uuid.UUID]Member
	byUser    map[string]Member
	roles     map[uuid.UUID][]RoleGrant
	overrides map[uuid.UUID]map[string]Override

	memberErr   error
	roleErr     error
	overrideErr error
}

func newStubStores() *stubStores {
	return &stubStores{
		members:   make(map[uuid.UUID]Member),
		byUser:    make(map[string]Member),
		roles:     make(map[uuid.UUID][]RoleGrant),
		overrides: make(map[uuid.UUID]map[string]Override),
	}
}

func (s *stubStores) addMember(memberType MemberType, email string) Member {
	m := Member{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		AgencyID:   uuid.New(),
		MemberType: memberType,
		Email:      email,
	}
	s.members[m.ID] = m
	s.byUser[m.UserID.String()+"|"+m.AgencyID.String()] = m
	return m
}

func (s *stubStores) GetMember(ctx context.Context, id uuid.UUID) (Member, error) {
	if s.memberErr != nil {
		return Member{}, s.memberErr
	}
	m, ok := s.members[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return m, nil
}

func (s *stubStores) GetMemberByUserAndAgency(ctx context.Context, userID, agencyID uuid.UUID) (Member, error) {
	if s.memberErr != nil {
		return Member{}, s.memberErr
	}
	m, ok := s.byUser[userID.String()+"|"+agencyID.String()]
	if !ok {
		return Member{}, ErrNotFound
	}
	return m, nil
}

func (s *stubStores) ListMemberRoles(ctx context.Context, memberID uuid.UUID) ([]RoleGrant, error) {
	if s.roleErr != nil {
		return nil, s.roleErr
	}
	return s.roles[memberID], nil
}

func (s *stubStores) ListOverrides(ctx context.Context, memberID uuid.UUID) (map[string]Override, error) {
	if s.overrideErr != nil {
		return nil, s.overrideErr
	}
	return s.overrides[memberID], nil
}

type recordingRecorder struct {
	outcomes []string
}

func (r *recordingRecorder) RecordResolution(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func newTestResolver(s *stubStores, godMode ...string) (*Resolver, *recordingRecorder) {
	rec := &recordingRecorder{}
	r := NewResolver(s, s, s, Config{
		GodModeEmails: godMode,
		Logger:        slog.Default(),
		Recorder:      rec,
	})
	return r, rec
}

func TestResolveGodModeBypassesEverything(t *testing.T) {
	s := newStubStores()
	s.memberErr = errors.New("store down")
	r, rec := newTestResolver(s, "Root@Example.COM")

	got := r.Resolve(context.Background(), uuid.New(), "root@example.com")

	assert.Equal(t, OwnerPermissions(), got, "god mode must not consult any store")
	assert.Equal(t, []string{OutcomeGodMode}, rec.outcomes)
}

func TestResolveGodModeByMemberEmail(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "root@example.com")
	r, _ := newTestResolver(s, "root@example.com")

	got := r.Resolve(context.Background(), m.ID, "")

	assert.Equal(t, OwnerPermissions(), got)
}

func TestResolveOwnerGetsEverything(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeOwner, "owner@agency.test")
	r, rec := newTestResolver(s)

	got := r.Resolve(context.Background(), m.ID, m.Email)

	require.Equal(t, OwnerPermissions(), got)
	for _, key := range AllKeys() {
		assert.True(t, got.Value(key), key)
	}
	assert.Equal(t, []string{OutcomeOwner}, rec.outcomes)
}

func TestResolveAdminGetsEverythingButBilling(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeAdmin, "admin@agency.test")
	r, rec := newTestResolver(s)

	got := r.Resolve(context.Background(), m.ID, m.Email)

	assert.False(t, got.Value(PermBillingManage))
	for _, key := range AllKeys() {
		if key == PermBillingManage {
			continue
		}
		assert.True(t, got.Value(key), key)
	}
	assert.Equal(t, []string{OutcomeAdmin}, rec.outcomes)
}

func TestResolveMissingMemberFailsClosed(t *testing.T) {
	s := newStubStores()
	r, rec := newTestResolver(s)

	got := r.Resolve(context.Background(), uuid.New(), "nobody@agency.test")

	assert.Empty(t, got)
	assert.Equal(t, []string{OutcomeMissing}, rec.outcomes)
}

func TestResolveMemberStoreErrorFailsClosed(t *testing.T) {
	s := newStubStores()
	s.memberErr = errors.New("connection refused")
	r, rec := newTestResolver(s)

	got := r.Resolve(context.Background(), uuid.New(), "")

	assert.Empty(t, got)
	assert.Equal(t, []string{OutcomeMissing}, rec.outcomes)
}

func TestResolveSeatedMergesRolesAndOverrides(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{
		grant(map[string]bool{PermLeadsView: true, PermLeadsEdit: false}),
		grant(map[string]bool{PermLeadsEdit: true, PermLeadsDelete: false}),
	}
	s.overrides[m.ID] = map[string]Override{
		PermLeadsEdit:    {Value: false, Reason: "probation"},
		PermCalendarView: {Value: true, Reason: "schedule duty"},
	}
	r, rec := newTestResolver(s)

	got := r.Resolve(context.Background(), m.ID, m.Email)

	assert.True(t, got.Value(PermLeadsView))
	assert.False(t, got.Value(PermLeadsEdit), "deny override beats the merged grant")
	assert.False(t, got.Value(PermLeadsDelete))
	assert.True(t, got.Value(PermCalendarView), "allow override grants an unmentioned key")
	assert.Equal(t, []string{OutcomeMerged}, rec.outcomes)
}

func TestResolveRoleFetchErrorFailsClosed(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.overrides[m.ID] = map[string]Override{PermLeadsView: {Value: true}}
	s.roleErr = errors.New("timeout")
	r, rec := newTestResolver(s)

	got := r.Resolve(context.Background(), m.ID, m.Email)

	assert.Empty(t, got, "a failed role fetch must not leak the override layer alone")
	assert.Equal(t, []string{OutcomeError}, rec.outcomes)
}

func TestResolveOverrideFetchErrorFailsClosed(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{grant(map[string]bool{PermLeadsView: true})}
	s.overrideErr = errors.New("timeout")
	r, _ := newTestResolver(s)

	got := r.Resolve(context.Background(), m.ID, m.Email)

	assert.Empty(t, got, "role grants alone must not apply when overrides are unreadable")
}

func TestResolveRepeatedCallsAreStable(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{
		grant(map[string]bool{PermLeadsView: true, PermLeadsEdit: false}),
		grant(map[string]bool{PermLeadsEdit: true, PermContactsView: true}),
	}
	s.roles[m.ID][0].SectionAccess = SectionSet{SectionLeads: true}
	s.roles[m.ID][1].SectionAccess = SectionSet{SectionContacts: true, SectionLeads: false}
	s.overrides[m.ID] = map[string]Override{
		PermLeadsEdit: {Value: false, Reason: "probation"},
	}
	r, _ := newTestResolver(s)
	ctx := context.Background()

	first := r.Resolve(ctx, m.ID, m.Email)
	second := r.Resolve(ctx, m.ID, m.Email)
	assert.Equal(t, first, second, "unchanged backing data must resolve identically")

	firstSections := r.SectionAccess(ctx, m.ID, m.Email)
	secondSections := r.SectionAccess(ctx, m.ID, m.Email)
	assert.Equal(t, firstSections, secondSections)
}

type capturingHandler struct {
	records []slog.Record
}

func (h *capturingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *capturingHandler) WithGroup(string) slog.Handler { return h }

func TestResolveWrappedNotFoundIsMissingNotFailure(t *testing.T) {
	s := newStubStores()
	s.memberErr = fmt.Errorf("query member: %w", ErrNotFound)
	handler := &capturingHandler{}
	rec := &recordingRecorder{}
	r := NewResolver(s, s, s, Config{Logger: slog.New(handler), Recorder: rec})

	got := r.Resolve(context.Background(), uuid.New(), "")

	assert.Empty(t, got)
	assert.Equal(t, []string{OutcomeMissing}, rec.outcomes)
	assert.Empty(t, handler.records, "a wrapped not-found is an absence, not a store failure")

	s.memberErr = errors.New("connection refused")
	r.Resolve(context.Background(), uuid.New(), "")
	assert.NotEmpty(t, handler.records, "real store failures are logged")
}

func TestHasPermissionHelpers(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{grant(map[string]bool{PermLeadsView: true, PermContactsView: true})}
	r, _ := newTestResolver(s)
	ctx := context.Background()

	assert.True(t, r.HasPermission(ctx, m.ID, PermLeadsView, m.Email))
	assert.False(t, r.HasPermission(ctx, m.ID, PermLeadsDelete, m.Email))

	assert.True(t, r.HasAnyPermission(ctx, m.ID, []string{PermLeadsDelete, PermLeadsView}, m.Email))
	assert.False(t, r.HasAnyPermission(ctx, m.ID, []string{PermLeadsDelete, PermBillingManage}, m.Email))
	assert.False(t, r.HasAnyPermission(ctx, m.ID, nil, m.Email))

	assert.True(t, r.HasAllPermissions(ctx, m.ID, []string{PermLeadsView, PermContactsView}, m.Email))
	assert.False(t, r.HasAllPermissions(ctx, m.ID, []string{PermLeadsView, PermLeadsDelete}, m.Email))
	assert.True(t, r.HasAllPermissions(ctx, m.ID, nil, m.Email))
}

func TestSectionAccessTierShortcuts(t *testing.T) {
	s := newStubStores()
	owner := s.addMember(MemberTypeOwner, "owner@agency.test")
	admin := s.addMember(MemberTypeAdmin, "admin@agency.test")
	r, _ := newTestResolver(s, "root@example.com")
	ctx := context.Background()

	assert.Equal(t, AllSections(), r.SectionAccess(ctx, owner.ID, owner.Email))
	assert.Equal(t, AllSections(), r.SectionAccess(ctx, admin.ID, admin.Email))
	assert.Equal(t, AllSections(), r.SectionAccess(ctx, uuid.New(), "root@example.com"))
}

func TestSectionAccessSeatedMergesWithoutOverrides(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{
		{ID: uuid.New(), SectionAccess: SectionSet{SectionLeads: true, SectionForms: false}},
		{ID: uuid.New(), SectionAccess: SectionSet{SectionForms: true}},
	}
	// Overrides exist but sections must ignore them entirely.
	s.overrides[m.ID] = map[string]Override{PermLeadsView: {Value: false}}
	r, _ := newTestResolver(s)

	got := r.SectionAccess(context.Background(), m.ID, m.Email)

	assert.True(t, got.Value(SectionLeads))
	assert.True(t, got.Value(SectionForms))
	assert.False(t, got.Value(SectionSettings))
}

func TestSectionAccessFailsClosed(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roleErr = errors.New("timeout")
	r, _ := newTestResolver(s)

	assert.Empty(t, r.SectionAccess(context.Background(), m.ID, m.Email))
	assert.Empty(t, r.SectionAccess(context.Background(), uuid.New(), ""))
}

func TestCanManageMember(t *testing.T) {
	s := newStubStores()
	agency := uuid.New()
	seat := func(memberType MemberType) Member {
		m := Member{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			AgencyID:   agency,
			MemberType: memberType,
			Email:      string(memberType) + "@agency.test",
		}
		s.members[m.ID] = m
		s.byUser[m.UserID.String()+"|"+m.AgencyID.String()] = m
		return m
	}
	owner := seat(MemberTypeOwner)
	admin := seat(MemberTypeAdmin)
	seated := seat(MemberTypeSeated)
	outsider := s.addMember(MemberTypeSeated, "other@agency.test")

	r, _ := newTestResolver(s)
	ctx := context.Background()

	assert.True(t, r.CanManageMember(ctx, owner.UserID, agency, admin.ID))
	assert.True(t, r.CanManageMember(ctx, owner.UserID, agency, seated.ID))
	assert.True(t, r.CanManageMember(ctx, owner.UserID, agency, owner.ID))

	assert.True(t, r.CanManageMember(ctx, admin.UserID, agency, seated.ID))
	assert.False(t, r.CanManageMember(ctx, admin.UserID, agency, admin.ID))
	assert.False(t, r.CanManageMember(ctx, admin.UserID, agency, owner.ID))

	assert.False(t, r.CanManageMember(ctx, seated.UserID, agency, seated.ID))

	assert.False(t, r.CanManageMember(ctx, uuid.New(), agency, seated.ID), "unknown manager")
	assert.False(t, r.CanManageMember(ctx, owner.UserID, agency, uuid.New()), "unknown target")
	assert.False(t, r.CanManageMember(ctx, owner.UserID, agency, outsider.ID), "cross-agency target")
}

func TestIsGodModeNormalizes(t *testing.T) {
	s := newStubStores()
	r, _ := newTestResolver(s, "  Root@Example.com ", "")

	assert.True(t, r.IsGodMode("root@example.com"))
	assert.True(t, r.IsGodMode("ROOT@EXAMPLE.COM"))
	assert.False(t, r.IsGodMode(""))
	assert.False(t, r.IsGodMode("other@example.com"))
}
