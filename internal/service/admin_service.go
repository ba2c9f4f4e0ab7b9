package service

import (
	"context"

	"tradeconnect/internal/cache"
	"tradeconnect/internal/middleware"
	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"
	"tradeconnect/internal/storage"

	"log/slog"
)

// AdminService backs the moderation and analytics surface. Every method
// assumes the caller's admin role has already been checked by middleware.
type AdminService struct {
	analytics repository.AnalyticsRepository
	posts     repository.PostRepository
	profiles  repository.ProfileRepository
	blobs     storage.BlobStore
}

// NewAdminService returns a new AdminService.
func NewAdminService(
	analytics repository.AnalyticsRepository,
	posts repository.PostRepository,
	profiles repository.ProfileRepository,
	blobs storage.BlobStore,
) *AdminService {
	return &AdminService{
		analytics: analytics,
		posts:     posts,
		profiles:  profiles,
		blobs:     blobs,
	}
}

// Analytics returns platform-wide aggregates.
func (s *AdminService) Analytics(ctx context.Context) (*repository.PlatformAnalytics, error) {
	return s.analytics.PlatformAnalytics(ctx)
}

// ListUsers returns profiles with per-user post counts, optionally matching
// a display name or email substring.
func (s *AdminService) ListUsers(ctx context.Context, search string, limit, offset int) ([]repository.AdminUserRow, error) {
	return s.analytics.ListUsers(ctx, search, limit, offset)
}

// ListPosts returns posts for moderation. Filter is one of "all",
// "published", "draft", or "featured".
func (s *AdminService) ListPosts(ctx context.Context, filter string, limit, offset int) ([]models.Post, error) {
	switch filter {
	case "", "all", "published", "draft", "featured":
	default:
		return nil, models.NewValidationError("Invalid filter; expected all, published, draft, or featured")
	}
	return s.analytics.ListPosts(ctx, filter, limit, offset)
}

// ToggleFeatured flips the post's featured flag and returns the new value.
func (s *AdminService) ToggleFeatured(ctx context.Context, postID uint) (bool, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return false, err
	}
	featured := !post.IsFeatured
	if err := s.posts.UpdateFields(ctx, postID, map[string]any{"is_featured": featured}); err != nil {
		return false, err
	}
	cache.InvalidatePost(ctx, postID)
	return featured, nil
}

// ToggleUserVerification flips the user's verified badge and returns the
// new value.
func (s *AdminService) ToggleUserVerification(ctx context.Context, userID uint) (bool, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	if profile == nil {
		return false, models.NewNotFoundError("Profile", userID)
	}
	profile.IsVerified = !profile.IsVerified
	if err := s.profiles.Update(ctx, profile); err != nil {
		return false, err
	}
	return profile.IsVerified, nil
}

// DeletePost removes any post regardless of ownership, with the same
// cascade as an owner deletion.
func (s *AdminService) DeletePost(ctx context.Context, postID uint) error {
	keys, err := s.posts.Delete(ctx, postID)
	if err != nil {
		return err
	}
	if s.blobs != nil {
		for _, key := range keys {
			if err := s.blobs.Delete(ctx, key); err != nil {
				middleware.Logger.WarnContext(ctx, "failed to delete blob",
					slog.String("key", key), slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

// RecentActivity returns the latest posts and signups interleaved.
func (s *AdminService) RecentActivity(ctx context.Context, limit int) ([]repository.ActivityItem, error) {
	return s.analytics.RecentActivity(ctx, limit)
}
