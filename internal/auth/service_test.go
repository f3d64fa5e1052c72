package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/billdesk/billdesk/internal/auth"
)

const testBcryptCost = 4 // low cost for fast tests

// memRepo is an in-memory UserRepository.
type memRepo struct {
	mu        sync.Mutex
	users     []auth.User
	createErr error
}

func (m *memRepo) Create(_ context.Context, u *auth.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	m.users = append(m.users, *u)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memRepo) FindByPrefix(_ context.Context, prefix string) ([]auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []auth.User{}
	for _, u := range m.users {
		if u.ApiKeyPrefix == prefix && u.RevokedAt == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memRepo) List(_ context.Context) ([]auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]auth.User{}, m.users...), nil
}

func (m *memRepo) Revoke(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			if m.users[i].RevokedAt != nil {
				return auth.ErrUserRevoked
			}
			now := time.Now()
			m.users[i].RevokedAt = &now
			return nil
		}
	}
	return auth.ErrUserNotFound
}

func (m *memRepo) CountAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

// --- GenerateKey ---

func TestGenerateKey_Format(t *testing.T) {
	t.Parallel()
	svc := auth.NewService(&memRepo{}, testBcryptCost)

	rawKey, prefix, hash, err := svc.GenerateKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rawKey, "bill_"), "raw key should start with bill_")
	assert.Len(t, prefix, 8, "prefix should be 8 characters")
	assert.Equal(t, rawKey[:8], prefix)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawKey)))
}

func TestGenerateKey_Unique(t *testing.T) {
	t.Parallel()
	svc := auth.NewService(&memRepo{}, testBcryptCost)

	k1, _, _, err := svc.GenerateKey()
	require.NoError(t, err)
	k2, _, _, err := svc.GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

// --- Authenticate ---

func TestAuthenticate_ValidKey(t *testing.T) {
	t.Parallel()
	repo := &memRepo{}
	svc := auth.NewService(repo, testBcryptCost)

	u, rawKey, err := svc.CreateUser(context.Background(), "alice", auth.RoleOperator)
	require.NoError(t, err)

	identity, err := svc.Authenticate(context.Background(), rawKey)
	require.NoError(t, err)
	assert.Equal(t, u.ID, identity.UserID)
	assert.Equal(t, "alice", identity.UserName)
	assert.False(t, identity.IsAdmin())
}

func TestAuthenticate_InvalidKey(t *testing.T) {
	t.Parallel()
	svc := auth.NewService(&memRepo{}, testBcryptCost)

	tests := []string{"", "short", "bill_notarealkeyatall"}
	for _, key := range tests {
		_, err := svc.Authenticate(context.Background(), key)
		assert.ErrorIs(t, err, auth.ErrInvalidKey, "key %q", key)
	}
}

func TestAuthenticate_RevokedKey(t *testing.T) {
	t.Parallel()
	repo := &memRepo{}
	svc := auth.NewService(repo, testBcryptCost)

	u, rawKey, err := svc.CreateUser(context.Background(), "bob", auth.RoleOperator)
	require.NoError(t, err)
	require.NoError(t, repo.Revoke(context.Background(), u.ID))

	_, err = svc.Authenticate(context.Background(), rawKey)
	assert.ErrorIs(t, err, auth.ErrInvalidKey)
}

// --- BootstrapAdmin ---

func TestBootstrapAdmin_EmptyTable(t *testing.T) {
	t.Parallel()
	repo := &memRepo{}
	svc := auth.NewService(repo, testBcryptCost)

	rawKey, err := svc.BootstrapAdmin(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rawKey)

	identity, err := svc.Authenticate(context.Background(), rawKey)
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())
}

func TestBootstrapAdmin_UsersExist(t *testing.T) {
	t.Parallel()
	repo := &memRepo{}
	svc := auth.NewService(repo, testBcryptCost)

	_, _, err := svc.CreateUser(context.Background(), "existing", auth.RoleOperator)
	require.NoError(t, err)

	rawKey, err := svc.BootstrapAdmin(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rawKey)
}

func TestBootstrapAdmin_CreateFails(t *testing.T) {
	t.Parallel()
	repo := &memRepo{createErr: errors.New("db down")}
	svc := auth.NewService(repo, testBcryptCost)

	_, err := svc.BootstrapAdmin(context.Background())
	assert.Error(t, err)
}
