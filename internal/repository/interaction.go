// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"tradeconnect/internal/models"
	"tradeconnect/internal/observability"

	"gorm.io/gorm"
)

// InteractionRepository persists likes, favorites, comments, and views.
//
// Every method that touches a cached counter performs the row change and the
// counter adjustment inside a single transaction, so the counter always
// equals the row count for its post.
type InteractionRepository interface {
	// ToggleLike flips the caller's like on the post. Returns the resulting
	// state and the post's like count after the toggle.
	ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error)
	// ToggleFavorite flips the caller's favorite on the post.
	ToggleFavorite(ctx context.Context, postID, userID uint) (bool, int, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	SoftDeleteComment(ctx context.Context, id uint) error
	ListCommentThreads(ctx context.Context, postID uint) ([]models.CommentThread, error)

	// TrackView records the view unless an equivalent view exists after
	// windowStart. view.CreatedAt must be preset by the caller. Returns
	// whether a row was recorded. Dedup is best-effort: two first views by
	// the same viewer racing through the window check can both record, so
	// the window suppresses repeat traffic rather than guaranteeing at most
	// one row per window.
	TrackView(ctx context.Context, view *models.PostView, windowStart time.Time) (bool, error)

	GetUserInteractions(ctx context.Context, postID, userID uint) (*models.UserInteractions, error)
	ListLikedPosts(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error)
	ListFavoritePosts(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new interaction repository.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error) {
	defer observability.TrackQuery("toggle", "likes")()
	return r.toggle(ctx, postID, userID, "likes", "like_count")
}

func (r *interactionRepository) ToggleFavorite(ctx context.Context, postID, userID uint) (bool, int, error) {
	defer observability.TrackQuery("toggle", "favorites")()
	return r.toggle(ctx, postID, userID, "favorites", "favorite_count")
}

// toggle flips the (postID, userID) row in table and keeps counterColumn in
// lockstep. When two toggles race, the loser's insert trips the unique index
// on (post_id, user_id); the transaction is rerun once so it sees the
// winner's row and settles as a delete.
func (r *interactionRepository) toggle(ctx context.Context, postID, userID uint, table, counterColumn string) (bool, int, error) {
	active, count, err := r.toggleOnce(ctx, postID, userID, table, counterColumn)
	if err != nil && IsUniqueConstraintError(err) {
		active, count, err = r.toggleOnce(ctx, postID, userID, table, counterColumn)
	}
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, 0, appErr
		}
		return false, 0, models.NewInternalError(err)
	}
	return active, count, nil
}

func (r *interactionRepository) toggleOnce(ctx context.Context, postID, userID uint, table, counterColumn string) (bool, int, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "toggle", table)
	defer span.End()

	var active bool
	var count int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}

		var existingID uint
		err := tx.Table(table).
			Select("id").
			Where("post_id = ? AND user_id = ?", postID, userID).
			Scan(&existingID).Error
		if err != nil {
			return err
		}

		if existingID != 0 {
			if err := tx.Exec("DELETE FROM "+table+" WHERE id = ?", existingID).Error; err != nil {
				return err
			}
			// Floor at zero even if the counter drifted.
			if err := tx.Model(&models.Post{}).
				Where("id = ? AND "+counterColumn+" > 0", postID).
				UpdateColumn(counterColumn, gorm.Expr(counterColumn+" - 1")).Error; err != nil {
				return err
			}
			active = false
		} else {
			row := map[string]any{
				"post_id":    postID,
				"user_id":    userID,
				"created_at": time.Now(),
			}
			if err := tx.Table(table).Create(row).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).
				Where("id = ?", postID).
				UpdateColumn(counterColumn, gorm.Expr(counterColumn+" + 1")).Error; err != nil {
				return err
			}
			active = true
		}

		return tx.Model(&models.Post{}).
			Select(counterColumn).
			Where("id = ?", postID).
			Scan(&count).Error
	})
	return active, count, err
}

func (r *interactionRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *interactionRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	defer observability.TrackQuery("get", "comments")()
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *interactionRepository) SoftDeleteComment(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "comments")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Comment", id)
			}
			return err
		}
		if comment.IsDeleted {
			return nil
		}
		if err := tx.Model(&comment).UpdateColumn("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).
			Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *interactionRepository) ListCommentThreads(ctx context.Context, postID uint) ([]models.CommentThread, error) {
	defer observability.TrackQuery("list", "comments")()

	type commentRow struct {
		models.Comment
		DisplayName string
	}

	var rows []commentRow
	if err := r.db.WithContext(ctx).
		Table("comments").
		Select("comments.*, profiles.display_name AS display_name").
		Joins("LEFT JOIN profiles ON profiles.user_id = comments.author_id").
		Where("comments.post_id = ? AND comments.is_deleted = ?", postID, false).
		Order("comments.created_at ASC, comments.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// Oldest-first on both levels; rows are already in order, so appends
	// preserve it.
	threads := make([]models.CommentThread, 0, len(rows))
	index := map[uint]int{}
	for _, row := range rows {
		if row.ParentID == nil {
			threads = append(threads, models.CommentThread{
				Comment:    row.Comment,
				AuthorName: row.DisplayName,
			})
			index[row.ID] = len(threads) - 1
		}
	}
	for _, row := range rows {
		if row.ParentID == nil {
			continue
		}
		i, ok := index[*row.ParentID]
		if !ok {
			// Parent is deleted; the reply is unreachable in the thread view.
			continue
		}
		threads[i].Replies = append(threads[i].Replies, models.CommentThread{
			Comment:    row.Comment,
			AuthorName: row.DisplayName,
		})
	}
	return threads, nil
}

// TrackView counts the view if no equivalent view exists inside the window.
// There is no unique index backing the window, so concurrent first views can
// both pass the count check; an occasional extra row is acceptable for view
// counting.
func (r *interactionRepository) TrackView(ctx context.Context, view *models.PostView, windowStart time.Time) (bool, error) {
	defer observability.TrackQuery("track", "post_views")()

	var tracked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").First(&post, view.PostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", view.PostID)
			}
			return err
		}

		q := tx.Model(&models.PostView{}).
			Where("post_id = ? AND created_at > ?", view.PostID, windowStart)
		if view.UserID != nil {
			q = q.Where("user_id = ?", *view.UserID)
		} else {
			q = q.Where("user_id IS NULL AND ip_address = ?", view.IPAddress)
		}

		var recent int64
		if err := q.Count(&recent).Error; err != nil {
			return err
		}
		if recent > 0 {
			// Inside the dedup window: nothing is persisted.
			return nil
		}

		if err := tx.Create(view).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).
			Where("id = ?", view.PostID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
			return err
		}
		tracked = true
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, appErr
		}
		return false, models.NewInternalError(err)
	}
	if tracked {
		observability.ViewsTracked.Inc()
	}
	return tracked, nil
}

func (r *interactionRepository) GetUserInteractions(ctx context.Context, postID, userID uint) (*models.UserInteractions, error) {
	defer observability.TrackQuery("get", "interactions")()

	var likes int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&likes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var favorites int64
	if err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&favorites).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return &models.UserInteractions{
		Liked:     likes > 0,
		Favorited: favorites > 0,
	}, nil
}

func (r *interactionRepository) ListLikedPosts(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	defer observability.TrackQuery("list", "likes")()
	return r.listInteractedPosts(ctx, userID, "likes", limit, offset)
}

func (r *interactionRepository) ListFavoritePosts(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	defer observability.TrackQuery("list", "favorites")()
	return r.listInteractedPosts(ctx, userID, "favorites", limit, offset)
}

func (r *interactionRepository) listInteractedPosts(ctx context.Context, userID uint, table string, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Joins("JOIN "+table+" ON "+table+".post_id = posts.id").
		Where(table+".user_id = ? AND posts.is_published = ?", userID, true).
		Order(table + ".created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
