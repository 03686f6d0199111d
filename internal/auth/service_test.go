package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

type mockRepo struct {
	users    map[string]*User
	sessions map[string]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[string]*User), sessions: make(map[string]string)}
}

func (m *mockRepo) addUser(email, password string, active bool) *User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	m.users[email] = user
	return user
}

func (m *mockRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepo) CreateSession(ctx context.Context, id string, userID string, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = userID
	return nil
}

func (m *mockRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func TestAuthenticate(t *testing.T) {
	repo := newMockRepo()
	user := repo.addUser("owner@demo.meridian.dev", "password123", true)
	repo.addUser("inactive@demo.meridian.dev", "password123", false)
	svc := NewService(repo)
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, "owner@demo.meridian.dev", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "owner@demo.meridian.dev", "wrong-password")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "unknown@demo.meridian.dev", "password123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "inactive@demo.meridian.dev", "password123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "sess-1", "user-1", time.Now().Add(time.Hour), "127.0.0.1", "test"))
	assert.Equal(t, "user-1", repo.sessions["sess-1"])

	require.NoError(t, svc.RemoveSession(ctx, "sess-1"))
	assert.NotContains(t, repo.sessions, "sess-1")
}
