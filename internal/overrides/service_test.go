package overrides

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

type mockRepository struct {
	entries map[uuid.UUID]map[string]MemberOverride
}

func newMockRepository() *mockRepository {
	return &mockRepository{entries: make(map[uuid.UUID]map[string]MemberOverride)}
}

func (m *mockRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]MemberOverride, error) {
	var out []MemberOverride
	for _, o := range m.entries[memberID] {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockRepository) MapByMember(ctx context.Context, memberID uuid.UUID) (map[string]permissions.Override, error) {
	out := make(map[string]permissions.Override)
	for key, o := range m.entries[memberID] {
		out[key] = permissions.Override{Value: o.Value, Reason: o.Reason}
	}
	return out, nil
}

func (m *mockRepository) Upsert(ctx context.Context, override MemberOverride) error {
	if m.entries[override.MemberID] == nil {
		m.entries[override.MemberID] = make(map[string]MemberOverride)
	}
	m.entries[override.MemberID][override.PermissionKey] = override
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, memberID uuid.UUID, permissionKey string) error {
	if _, ok := m.entries[memberID][permissionKey]; !ok {
		return ErrNotFound
	}
	delete(m.entries[memberID], permissionKey)
	return nil
}

type stubMemberStore struct {
	members map[uuid.UUID]permissions.Member
}

func (s stubMemberStore) GetMember(ctx context.Context, id uuid.UUID) (permissions.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return permissions.Member{}, permissions.ErrNotFound
	}
	return m, nil
}

func (s stubMemberStore) GetMemberByUserAndAgency(ctx context.Context, userID, agencyID uuid.UUID) (permissions.Member, error) {
	return permissions.Member{}, permissions.ErrNotFound
}

func newTestService(repo *mockRepository) (*Service, uuid.UUID, uuid.UUID) {
	agencyID := uuid.New()
	memberID := uuid.New()
	members := stubMemberStore{members: map[uuid.UUID]permissions.Member{
		memberID: {ID: memberID, AgencyID: agencyID, MemberType: permissions.MemberTypeSeated},
	}}
	return NewService(repo, members, nil), agencyID, memberID
}

func TestSetRejectsUnknownKey(t *testing.T) {
	svc, agencyID, memberID := newTestService(newMockRepository())

	err := svc.Set(context.Background(), uuid.New(), agencyID, memberID, "leads.fly", true, "because")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestSetRejectsCrossAgencyMember(t *testing.T) {
	svc, _, memberID := newTestService(newMockRepository())

	err := svc.Set(context.Background(), uuid.New(), uuid.New(), memberID, permissions.PermLeadsView, true, "because")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetUpsertsAndClearRemoves(t *testing.T) {
	repo := newMockRepository()
	svc, agencyID, memberID := newTestService(repo)
	ctx := context.Background()
	actor := uuid.New()

	require.NoError(t, svc.Set(ctx, actor, agencyID, memberID, permissions.PermLeadsEdit, false, "probation"))
	require.NoError(t, svc.Set(ctx, actor, agencyID, memberID, permissions.PermLeadsEdit, true, "probation over"))

	list, err := svc.List(ctx, agencyID, memberID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Value)
	assert.Equal(t, "probation over", list[0].Reason)

	require.NoError(t, svc.Clear(ctx, actor, agencyID, memberID, permissions.PermLeadsEdit))
	assert.ErrorIs(t, svc.Clear(ctx, actor, agencyID, memberID, permissions.PermLeadsEdit), ErrNotFound)
}

func TestStoreShapesOverridesForResolver(t *testing.T) {
	repo := newMockRepository()
	_, _, memberID := newTestService(repo)
	require.NoError(t, repo.Upsert(context.Background(), MemberOverride{
		MemberID:      memberID,
		PermissionKey: permissions.PermLeadsView,
		Value:         false,
		Reason:        "probation",
	}))

	store := NewStore(repo)
	got, err := store.ListOverrides(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, map[string]permissions.Override{
		permissions.PermLeadsView: {Value: false, Reason: "probation"},
	}, got)
}
