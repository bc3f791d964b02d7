package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "basera/pkg/domain"
	"basera/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	user := &User{ID: id.UserID(uuid.New()), Role: id.RoleStudent}

	t.Run("find missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.Find(ctx, id.UserID(uuid.New()))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("create and find", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, user))
		found, err := store.Find(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, id.RoleStudent, found.Role)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		assert.ErrorIs(t, store.Create(ctx, user), sentinel.ErrConflict)
	})

	t.Run("update flags", func(t *testing.T) {
		user.IdentityVerified = true
		user.VerificationSkipped = true
		require.NoError(t, store.Update(ctx, user))

		found, err := store.Find(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, found.IdentityVerified)
		assert.True(t, found.VerificationSkipped)
	})

	t.Run("update missing returns ErrNotFound", func(t *testing.T) {
		ghost := &User{ID: id.UserID(uuid.New())}
		assert.ErrorIs(t, store.Update(ctx, ghost), sentinel.ErrNotFound)
	})

	t.Run("found user is a copy", func(t *testing.T) {
		found, err := store.Find(ctx, user.ID)
		require.NoError(t, err)
		found.Role = id.RoleOwner

		again, err := store.Find(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, id.RoleStudent, again.Role)
	})
}
