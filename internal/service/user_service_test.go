package service

import (
	"context"
	"strings"
	"testing"

	"tradeconnect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetOrCreateProfile(t *testing.T) {
	t.Parallel()

	t.Run("creates when missing", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Email: "carol@example.com", Role: models.RoleUser}, nil
		}
		var created *models.Profile
		profiles := noopProfileRepo()
		profiles.createFn = func(_ context.Context, p *models.Profile) error {
			created = p
			return nil
		}
		svc := NewUserService(users, profiles)

		profile, err := svc.GetOrCreateProfile(context.Background(), 3)
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, uint(3), profile.UserID)
		assert.Equal(t, "carol", profile.DisplayName)
	})

	t.Run("idempotent for existing profile", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Email: "carol@example.com", Role: models.RoleUser}, nil
		}
		createCalls := 0
		profiles := noopProfileRepo()
		profiles.getByUserIDFn = func(_ context.Context, userID uint) (*models.Profile, error) {
			return &models.Profile{ID: 1, UserID: userID, DisplayName: "Carol"}, nil
		}
		profiles.createFn = func(_ context.Context, _ *models.Profile) error {
			createCalls++
			return nil
		}
		svc := NewUserService(users, profiles)

		profile, err := svc.GetOrCreateProfile(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Carol", profile.DisplayName)
		assert.Zero(t, createCalls)
	})
}

func TestUserService_GetProfile_SyncsRole(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleAdmin}, nil
	}
	var updated *models.Profile
	profiles := noopProfileRepo()
	profiles.getByUserIDFn = func(_ context.Context, userID uint) (*models.Profile, error) {
		// The profile still carries the role from before the promotion.
		return &models.Profile{ID: 1, UserID: userID, Role: models.RoleUser}, nil
	}
	profiles.updateFn = func(_ context.Context, p *models.Profile) error {
		updated = p
		return nil
	}
	svc := NewUserService(users, profiles)

	profile, err := svc.GetProfile(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, profile.Role)
	require.NotNil(t, updated)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewUserService(noopUserRepo(), noopProfileRepo())
	_, err := svc.GetProfile(context.Background(), 99)
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	newProfileRepo := func() *profileRepoStub {
		profiles := noopProfileRepo()
		profiles.getByUserIDFn = func(_ context.Context, userID uint) (*models.Profile, error) {
			return &models.Profile{ID: 1, UserID: userID, DisplayName: "Old", Location: "Berlin"}, nil
		}
		return profiles
	}
	ctx := context.Background()

	t.Run("partial patch", func(t *testing.T) {
		t.Parallel()
		svc := NewUserService(noopUserRepo(), newProfileRepo())
		name := "New Name"
		profile, err := svc.UpdateProfile(ctx, 1, UpdateProfileInput{DisplayName: &name})
		require.NoError(t, err)
		assert.Equal(t, "New Name", profile.DisplayName)
		assert.Equal(t, "Berlin", profile.Location, "unset fields stay untouched")
	})

	t.Run("empty display name", func(t *testing.T) {
		t.Parallel()
		svc := NewUserService(noopUserRepo(), newProfileRepo())
		empty := ""
		_, err := svc.UpdateProfile(ctx, 1, UpdateProfileInput{DisplayName: &empty})
		assertValidationError(t, err)
	})

	t.Run("display name too long", func(t *testing.T) {
		t.Parallel()
		svc := NewUserService(noopUserRepo(), newProfileRepo())
		long := strings.Repeat("x", 81)
		_, err := svc.UpdateProfile(ctx, 1, UpdateProfileInput{DisplayName: &long})
		assertValidationError(t, err)
	})
}
