package repository

import (
	"context"
	"testing"

	"tradeconnect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_EmailNormalization(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Name: "Dana", Email: "Dana@Example.COM", Password: "x", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, "dana@example.com", user.Email)

	// Lookup matches regardless of the caller's casing.
	found, err := repo.GetByEmail(ctx, "DANA@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
}

func TestUserRepository_GetByEmail_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	found, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, found, "a missing user is not an error")
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := &models.User{Email: "dup@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.User{Email: "DUP@example.com", Password: "x", Role: models.RoleUser}
	err := repo.Create(ctx, second)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestProfileRepository(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	profiles := NewProfileRepository(db)
	ctx := context.Background()

	user := &models.User{Email: "p@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, users.Create(ctx, user))

	t.Run("missing profile is nil, not an error", func(t *testing.T) {
		profile, err := profiles.GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, profile)
	})

	t.Run("create and fetch", func(t *testing.T) {
		profile := &models.Profile{UserID: user.ID, DisplayName: "P", Email: user.Email, Role: user.Role}
		require.NoError(t, profiles.Create(ctx, profile))

		fetched, err := profiles.GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, "P", fetched.DisplayName)
	})

	t.Run("one profile per user", func(t *testing.T) {
		err := profiles.Create(ctx, &models.Profile{UserID: user.ID, DisplayName: "Again"})
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})

	t.Run("update", func(t *testing.T) {
		fetched, err := profiles.GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		fetched.Location = "Lisbon"
		require.NoError(t, profiles.Update(ctx, fetched))

		again, err := profiles.GetByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lisbon", again.Location)
	})
}
