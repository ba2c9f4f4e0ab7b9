package service

import (
	"context"
	"testing"

	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analyticsRepoStub is a stub for repository.AnalyticsRepository.
type analyticsRepoStub struct {
	platformAnalyticsFn func(context.Context) (*repository.PlatformAnalytics, error)
	listUsersFn         func(context.Context, string, int, int) ([]repository.AdminUserRow, error)
	listPostsFn         func(context.Context, string, int, int) ([]models.Post, error)
	recentActivityFn    func(context.Context, int) ([]repository.ActivityItem, error)
}

func (s *analyticsRepoStub) PlatformAnalytics(ctx context.Context) (*repository.PlatformAnalytics, error) {
	return s.platformAnalyticsFn(ctx)
}
func (s *analyticsRepoStub) ListUsers(ctx context.Context, search string, limit, offset int) ([]repository.AdminUserRow, error) {
	return s.listUsersFn(ctx, search, limit, offset)
}
func (s *analyticsRepoStub) ListPosts(ctx context.Context, filter string, limit, offset int) ([]models.Post, error) {
	return s.listPostsFn(ctx, filter, limit, offset)
}
func (s *analyticsRepoStub) RecentActivity(ctx context.Context, limit int) ([]repository.ActivityItem, error) {
	return s.recentActivityFn(ctx, limit)
}

func noopAnalyticsRepo() *analyticsRepoStub {
	return &analyticsRepoStub{
		platformAnalyticsFn: func(_ context.Context) (*repository.PlatformAnalytics, error) {
			return &repository.PlatformAnalytics{}, nil
		},
		listUsersFn:      func(_ context.Context, _ string, _, _ int) ([]repository.AdminUserRow, error) { return nil, nil },
		listPostsFn:      func(_ context.Context, _ string, _, _ int) ([]models.Post, error) { return nil, nil },
		recentActivityFn: func(_ context.Context, _ int) ([]repository.ActivityItem, error) { return nil, nil },
	}
}

func TestAdminService_ListPosts_Filter(t *testing.T) {
	t.Parallel()

	var gotFilter string
	analytics := noopAnalyticsRepo()
	analytics.listPostsFn = func(_ context.Context, filter string, _, _ int) ([]models.Post, error) {
		gotFilter = filter
		return nil, nil
	}
	svc := NewAdminService(analytics, noopPostRepo(), noopProfileRepo(), nil)
	ctx := context.Background()

	for _, filter := range []string{"all", "published", "draft", "featured"} {
		_, err := svc.ListPosts(ctx, filter, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, filter, gotFilter)
	}

	_, err := svc.ListPosts(ctx, "spam", 20, 0)
	assertValidationError(t, err)
}

func TestAdminService_ToggleFeatured(t *testing.T) {
	t.Parallel()

	post := &models.Post{ID: 1, IsFeatured: false}
	var gotFields map[string]any
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) { return post, nil }
	posts.updateFieldsFn = func(_ context.Context, _ uint, fields map[string]any) error {
		gotFields = fields
		return nil
	}
	svc := NewAdminService(noopAnalyticsRepo(), posts, noopProfileRepo(), nil)

	featured, err := svc.ToggleFeatured(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, featured)
	assert.Equal(t, map[string]any{"is_featured": true}, gotFields)

	post.IsFeatured = true
	featured, err = svc.ToggleFeatured(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, featured)
	assert.Equal(t, map[string]any{"is_featured": false}, gotFields)
}

func TestAdminService_ToggleUserVerification(t *testing.T) {
	t.Parallel()

	t.Run("flips the badge", func(t *testing.T) {
		t.Parallel()
		profiles := noopProfileRepo()
		profiles.getByUserIDFn = func(_ context.Context, userID uint) (*models.Profile, error) {
			return &models.Profile{ID: 1, UserID: userID, IsVerified: false}, nil
		}
		var updated *models.Profile
		profiles.updateFn = func(_ context.Context, p *models.Profile) error {
			updated = p
			return nil
		}
		svc := NewAdminService(noopAnalyticsRepo(), noopPostRepo(), profiles, nil)

		verified, err := svc.ToggleUserVerification(context.Background(), 4)
		require.NoError(t, err)
		assert.True(t, verified)
		require.NotNil(t, updated)
		assert.True(t, updated.IsVerified)
	})

	t.Run("missing profile", func(t *testing.T) {
		t.Parallel()
		svc := NewAdminService(noopAnalyticsRepo(), noopPostRepo(), noopProfileRepo(), nil)
		_, err := svc.ToggleUserVerification(context.Background(), 4)
		assertErrorCode(t, err, "NOT_FOUND")
	})
}

func TestAdminService_DeletePost_IgnoresOwnership(t *testing.T) {
	t.Parallel()

	deleted := false
	posts := noopPostRepo()
	posts.deleteFn = func(_ context.Context, _ uint) ([]string, error) {
		deleted = true
		return []string{"uploads/gone.jpg"}, nil
	}
	blobs := &blobStoreStub{}
	svc := NewAdminService(noopAnalyticsRepo(), posts, noopProfileRepo(), blobs)

	require.NoError(t, svc.DeletePost(context.Background(), 1))
	assert.True(t, deleted)
	assert.Equal(t, []string{"uploads/gone.jpg"}, blobs.deleted)
}
