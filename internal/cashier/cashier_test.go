package cashier

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techstore/pos/internal/domain"
	"github.com/techstore/pos/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	st, err := store.Open(&store.Config{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "pos.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.RunMigrations("../../migrations/sqlite"))
	return NewRepository(st)
}

func TestAuthenticate_SeededAdmin(t *testing.T) {
	repo := newTestRepo(t)

	c, err := repo.Authenticate(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Username)
	assert.Equal(t, domain.RoleAdmin, c.Role)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Authenticate(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UnknownUsername(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Authenticate(context.Background(), "ghost", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateAndAuthenticate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "maria", "s3cret", domain.RoleCashier, "Maria Santos")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "maria", created.Username)
	assert.Equal(t, domain.RoleCashier, created.Role)
	assert.Equal(t, "Maria Santos", created.FullName)

	got, err := repo.Authenticate(ctx, "maria", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "maria", "s3cret", domain.RoleCashier, "")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "maria", "other", domain.RoleCashier, "")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestCreate_UnknownRole(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(context.Background(), "bob", "pw", domain.Role("janitor"), "")
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "maria", "s3cret", domain.RoleCashier, "Maria Santos")
	require.NoError(t, err)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2) // seeded admin plus maria
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "maria", users[1].Username)
}

func TestHashPassword_IsSHA256Hex(t *testing.T) {
	assert.Equal(t,
		"240be518fabd2724ddb6f04eeb1da5967448d7e831c08c8fa822809f74c720a9",
		hashPassword("admin123"))
}
