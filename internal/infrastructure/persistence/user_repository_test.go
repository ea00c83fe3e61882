package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUserRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	repo := NewGormUserRepository(db.DB)

	user, err := identity.NewUser("alice", "correct-horse", identity.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, user))

	t.Run("find by username", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, identity.RoleAdmin, found.Role)
		assert.True(t, found.VerifyPassword("correct-horse"))
		assert.Nil(t, found.LastLoginAt)
	})

	t.Run("exists by username", func(t *testing.T) {
		exists, err := repo.ExistsByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("login details are persisted", func(t *testing.T) {
		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		found.RecordLogin("203.0.113.7")
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7", reloaded.LastLoginIP)
		assert.NotNil(t, reloaded.LastLoginAt)
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		dup, err := identity.NewUser("alice", "another-password", identity.RoleCustomer)
		require.NoError(t, err)
		err = repo.Save(ctx, dup)
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		_, err = repo.FindByUsername(ctx, "nobody")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}
