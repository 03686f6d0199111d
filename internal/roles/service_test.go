package roles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

type mockRepository struct {
	roles       map[uuid.UUID]*Role
	assignments map[uuid.UUID]map[uuid.UUID]bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[uuid.UUID]*Role),
		assignments: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (m *mockRepository) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]Role, error) {
	var out []Role
	for _, role := range m.roles {
		if role.AgencyID == agencyID {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(ctx context.Context, role Role) (uuid.UUID, error) {
	role.ID = uuid.New()
	m.roles[role.ID] = &role
	return role.ID, nil
}

func (m *mockRepository) Update(ctx context.Context, role Role) error {
	if _, ok := m.roles[role.ID]; !ok {
		return ErrNotFound
	}
	m.roles[role.ID] = &role
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if len(m.assignments[id]) > 0 {
		return ErrInUse
	}
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *mockRepository) AssignToMember(ctx context.Context, roleID, memberID uuid.UUID) error {
	if m.assignments[roleID] == nil {
		m.assignments[roleID] = make(map[uuid.UUID]bool)
	}
	m.assignments[roleID][memberID] = true
	return nil
}

func (m *mockRepository) UnassignFromMember(ctx context.Context, roleID, memberID uuid.UUID) error {
	if !m.assignments[roleID][memberID] {
		return ErrNotFound
	}
	delete(m.assignments[roleID], memberID)
	return nil
}

func (m *mockRepository) ListMemberRoles(ctx context.Context, memberID uuid.UUID) ([]permissions.RoleGrant, error) {
	var out []permissions.RoleGrant
	for roleID, members := range m.assignments {
		if members[memberID] {
			out = append(out, m.roles[roleID].Grant())
		}
	}
	return out, nil
}

func (m *mockRepository) RefreshUsageCounts(ctx context.Context) (int64, error) {
	var updated int64
	for roleID, role := range m.roles {
		n := len(m.assignments[roleID])
		if role.MemberCount != n {
			role.MemberCount = n
			updated++
		}
	}
	return updated, nil
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

func newTestService(repo *mockRepository) (*Service, stubMemberStore) {
	members := stubMemberStore{members: make(map[uuid.UUID]permissions.Member)}
	return NewService(repo, members, nil), members
}

func TestCreateValidatesAgainstCatalog(t *testing.T) {
	svc, _ := newTestService(newMockRepository())

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), CreateRoleRequest{
		Name:        "Sales",
		Permissions: map[string]bool{"leads.fly": true},
	})
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = svc.Create(context.Background(), uuid.New(), uuid.New(), CreateRoleRequest{
		Name:          "Sales",
		SectionAccess: map[string]bool{"warehouse": true},
	})
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestCreateStoresValidRole(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(repo)
	agencyID := uuid.New()

	role, err := svc.Create(context.Background(), uuid.New(), agencyID, CreateRoleRequest{
		Name:          "Sales Rep",
		Color:         "#2563eb",
		Permissions:   map[string]bool{permissions.PermLeadsView: true, permissions.PermLeadsEdit: false},
		SectionAccess: map[string]bool{permissions.SectionLeads: true},
		Position:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, agencyID, role.AgencyID)
	assert.True(t, role.Permissions[permissions.PermLeadsView])
	assert.False(t, role.Permissions[permissions.PermLeadsEdit])
	assert.Equal(t, 2, role.Position)
}

func TestUpdateEnforcesAgencyScope(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(repo)
	id, err := repo.Create(context.Background(), Role{AgencyID: uuid.New(), Name: "Sales"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), uuid.New(), uuid.New(), id, UpdateRoleRequest{Name: "Renamed"})
	assert.ErrorIs(t, err, ErrNotFound, "a role in another agency must look absent")
}

func TestDeleteRefusesAssignedRole(t *testing.T) {
	repo := newMockRepository()
	svc, members := newTestService(repo)
	agencyID := uuid.New()
	id, err := repo.Create(context.Background(), Role{AgencyID: agencyID, Name: "Sales"})
	require.NoError(t, err)

	memberID := uuid.New()
	members.members[memberID] = permissions.Member{ID: memberID, AgencyID: agencyID}
	require.NoError(t, svc.Assign(context.Background(), uuid.New(), agencyID, id, memberID))

	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), agencyID, id), ErrInUse)

	require.NoError(t, svc.Unassign(context.Background(), uuid.New(), agencyID, id, memberID))
	assert.NoError(t, svc.Delete(context.Background(), uuid.New(), agencyID, id))
}

func TestAssignRejectsCrossAgencyMember(t *testing.T) {
	repo := newMockRepository()
	svc, members := newTestService(repo)
	agencyID := uuid.New()
	id, err := repo.Create(context.Background(), Role{AgencyID: agencyID, Name: "Sales"})
	require.NoError(t, err)

	memberID := uuid.New()
	members.members[memberID] = permissions.Member{ID: memberID, AgencyID: uuid.New()}

	assert.ErrorIs(t, svc.Assign(context.Background(), uuid.New(), agencyID, id, memberID), ErrNotFound)
}

func TestRefreshUsageCounts(t *testing.T) {
	repo := newMockRepository()
	agencyID := uuid.New()
	id, err := repo.Create(context.Background(), Role{AgencyID: agencyID, Name: "Sales"})
	require.NoError(t, err)
	require.NoError(t, repo.AssignToMember(context.Background(), id, uuid.New()))

	updated, err := repo.RefreshUsageCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	role, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, role.MemberCount)
}
