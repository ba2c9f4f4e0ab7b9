package service

import (
	"context"
	"strings"
	"time"

	"tradeconnect/internal/cache"
	"tradeconnect/internal/middleware"
	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"
)

// ViewDedupWindow is how long a repeat view by the same viewer is ignored.
const ViewDedupWindow = time.Hour

const maxCommentLen = 2000

// InteractionService handles likes, favorites, comments, and view tracking.
type InteractionService struct {
	interactions repository.InteractionRepository
	isAdmin      func(ctx context.Context, userID uint) (bool, error)
	now          func() time.Time
}

// NewInteractionService returns a new InteractionService.
func NewInteractionService(
	interactions repository.InteractionRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *InteractionService {
	return &InteractionService{
		interactions: interactions,
		isAdmin:      isAdmin,
		now:          time.Now,
	}
}

// ToggleResult is the outcome of flipping a like or favorite.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// ToggleLike flips the caller's like on the post.
func (s *InteractionService) ToggleLike(ctx context.Context, postID, userID uint) (*ToggleResult, error) {
	active, count, err := s.interactions.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	s.afterToggle(ctx, "like", active, postID)
	return &ToggleResult{Active: active, Count: count}, nil
}

// ToggleFavorite flips the caller's favorite on the post.
func (s *InteractionService) ToggleFavorite(ctx context.Context, postID, userID uint) (*ToggleResult, error) {
	active, count, err := s.interactions.ToggleFavorite(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	s.afterToggle(ctx, "favorite", active, postID)
	return &ToggleResult{Active: active, Count: count}, nil
}

func (s *InteractionService) afterToggle(ctx context.Context, kind string, active bool, postID uint) {
	state := "off"
	if active {
		state = "on"
	}
	middleware.InteractionToggles.WithLabelValues(kind, state).Inc()
	cache.InvalidatePost(ctx, postID)
}

// AddCommentInput is a comment or reply payload.
type AddCommentInput struct {
	PostID   uint
	AuthorID uint
	Content  string
	ParentID *uint
}

// AddComment creates a comment on the post. Replies attach to a top-level
// comment; a reply to a reply is reattached to that reply's top-level parent
// so threads stay one level deep.
func (s *InteractionService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	parentID := in.ParentID
	if parentID != nil {
		parent, err := s.interactions.GetCommentByID(ctx, *parentID)
		if err != nil {
			return nil, models.NewInvalidParentError("Parent comment does not exist")
		}
		if parent.IsDeleted {
			return nil, models.NewInvalidParentError("Parent comment has been deleted")
		}
		if parent.PostID != in.PostID {
			return nil, models.NewInvalidParentError("Parent comment belongs to a different post")
		}
		if parent.ParentID != nil {
			// Replying to a reply: attach to the thread root instead.
			parentID = parent.ParentID
		}
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		AuthorID: in.AuthorID,
		Content:  content,
		ParentID: parentID,
	}
	if err := s.interactions.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, in.PostID)
	return comment, nil
}

// GetComments returns the post's comment threads, oldest first.
func (s *InteractionService) GetComments(ctx context.Context, postID uint) ([]models.CommentThread, error) {
	return s.interactions.ListCommentThreads(ctx, postID)
}

// DeleteComment hides the comment. Only the author or an admin may delete.
func (s *InteractionService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.interactions.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewForbiddenError("You do not have permission to delete this comment")
		}
	}
	if err := s.interactions.SoftDeleteComment(ctx, commentID); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, comment.PostID)
	return nil
}

// TrackView records a view of the post unless the same viewer (user, or IP
// for anonymous traffic) viewed it within the dedup window. Returns whether
// the view was counted.
func (s *InteractionService) TrackView(ctx context.Context, postID uint, userID *uint, ipAddress, userAgent string) (bool, error) {
	now := s.now()
	view := &models.PostView{
		PostID:    postID,
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	tracked, err := s.interactions.TrackView(ctx, view, now.Add(-ViewDedupWindow))
	if err != nil {
		return false, err
	}
	if tracked {
		cache.InvalidatePost(ctx, postID)
	}
	return tracked, nil
}

// GetUserInteractions reports whether the user liked and favorited the post.
func (s *InteractionService) GetUserInteractions(ctx context.Context, postID, userID uint) (*models.UserInteractions, error) {
	return s.interactions.GetUserInteractions(ctx, postID, userID)
}

// ListLikedPosts returns published posts the user liked, newest like first.
func (s *InteractionService) ListLikedPosts(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	return s.interactions.ListLikedPosts(ctx, userID, limit, offset)
}

// ListFavoritePosts returns published posts the user favorited.
func (s *InteractionService) ListFavoritePosts(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	return s.interactions.ListFavoritePosts(ctx, userID, limit, offset)
}
