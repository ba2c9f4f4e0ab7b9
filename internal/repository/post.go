// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"tradeconnect/internal/cache"
	"tradeconnect/internal/models"
	"tradeconnect/internal/observability"

	"gorm.io/gorm"
)

// PostFilter narrows a published-listing query. Zero values mean "no filter".
type PostFilter struct {
	Category  string
	PostType  string
	Location  string
	City      string
	Country   string
	MinPrice  *float64
	MaxPrice  *float64
	Condition string
	Search    string
	// Cursor is the ID of the last post of the previous page (keyset
	// pagination, newest first). Zero starts from the top.
	Cursor uint
	Limit  int
}

// PostPage is one page of listings plus the cursor for the next one.
type PostPage struct {
	Posts      []models.Post `json:"posts"`
	HasMore    bool          `json:"has_more"`
	NextCursor uint          `json:"next_cursor,omitempty"`
}

// PostStats aggregates published-listing counts for the public stats endpoint.
type PostStats struct {
	TotalPosts int64            `json:"total_posts"`
	ByCategory map[string]int64 `json:"by_category"`
	ByPostType map[string]int64 `json:"by_post_type"`
}

// PostRepository defines the interface for listing data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	// Delete removes the post and every dependent row (images, comments,
	// likes, favorites, views) in one transaction. It returns the storage
	// keys of the deleted images so the caller can clean up the blob store.
	Delete(ctx context.Context, id uint) ([]string, error)
	ListByAuthor(ctx context.Context, authorID uint, includeDrafts bool, limit, offset int) ([]models.Post, error)
	ListPublished(ctx context.Context, filter PostFilter) (*PostPage, error)
	ListFeatured(ctx context.Context, limit int) ([]models.Post, error)
	Stats(ctx context.Context) (*PostStats, error)
	AddImage(ctx context.Context, image *models.PostImage) error
	ListImages(ctx context.Context, postID uint) ([]models.PostImage, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()

	// Every write path invalidates this key, so a hit is always current.
	var post models.Post
	if found, _ := cache.GetJSON(ctx, cache.PostKey(id), &post); found {
		return &post, nil
	}

	post = models.Post{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}

	_ = cache.SetJSON(ctx, cache.PostKey(id), &post, cache.PostTTL)
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	defer observability.TrackQuery("update", "posts")()
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	defer observability.TrackQuery("delete", "posts")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "delete", "posts")
	defer span.End()

	var storageKeys []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var images []models.PostImage
		if err := tx.Where("post_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		for _, img := range images {
			storageKeys = append(storageKeys, img.StorageKey)
		}

		for _, dependent := range []any{
			&models.PostImage{},
			&models.Comment{},
			&models.Like{},
			&models.Favorite{},
			&models.PostView{},
		} {
			if err := tx.Where("post_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	cache.InvalidatePost(ctx, id)
	return storageKeys, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, includeDrafts bool, limit, offset int) ([]models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	q := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("author_id = ?", authorID)
	if !includeDrafts {
		q = q.Where("is_published = ?", true)
	}

	var posts []models.Post
	if err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListPublished(ctx context.Context, filter PostFilter) (*PostPage, error) {
	defer observability.TrackQuery("list", "posts")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "list_published", "posts")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	q := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("is_published = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now())

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.PostType != "" {
		q = q.Where("post_type = ?", filter.PostType)
	}
	if filter.City != "" {
		q = q.Where("city = ?", filter.City)
	}
	if filter.Country != "" {
		q = q.Where("country = ?", filter.Country)
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.Condition != "" {
		q = q.Where("condition = ?", filter.Condition)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if filter.Cursor > 0 {
		q = q.Where("id < ?", filter.Cursor)
	}

	// Fetch one extra row to detect a following page.
	var posts []models.Post
	if err := q.Order("id DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	page := &PostPage{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		page.HasMore = true
		page.NextCursor = page.Posts[limit-1].ID
	}
	return page, nil
}

func (r *postRepository) ListFeatured(ctx context.Context, limit int) ([]models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	if limit <= 0 {
		limit = 10
	}

	var featured []models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("is_published = ? AND is_featured = ?", true, true).
		Order("published_at DESC").
		Limit(limit).
		Find(&featured).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// Top up with recent published listings when not enough are featured.
	if len(featured) < limit {
		exclude := make([]uint, 0, len(featured))
		for _, p := range featured {
			exclude = append(exclude, p.ID)
		}
		q := r.db.WithContext(ctx).
			Preload("Author").
			Where("is_published = ? AND is_featured = ?", true, false).
			Order("published_at DESC").
			Limit(limit - len(featured))
		if len(exclude) > 0 {
			q = q.Where("id NOT IN ?", exclude)
		}
		var recent []models.Post
		if err := q.Find(&recent).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		featured = append(featured, recent...)
	}
	return featured, nil
}

func (r *postRepository) Stats(ctx context.Context) (*PostStats, error) {
	defer observability.TrackQuery("stats", "posts")()

	stats := &PostStats{
		ByCategory: map[string]int64{},
		ByPostType: map[string]int64{},
	}

	published := r.db.WithContext(ctx).Model(&models.Post{}).Where("is_published = ?", true)
	if err := published.Count(&stats.TotalPosts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byCategory []bucket
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("category AS key, COUNT(*) AS count").
		Where("is_published = ?", true).
		Group("category").
		Scan(&byCategory).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, b := range byCategory {
		stats.ByCategory[b.Key] = b.Count
	}

	var byType []bucket
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("post_type AS key, COUNT(*) AS count").
		Where("is_published = ?", true).
		Group("post_type").
		Scan(&byType).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, b := range byType {
		stats.ByPostType[b.Key] = b.Count
	}

	return stats, nil
}

func (r *postRepository) AddImage(ctx context.Context, image *models.PostImage) error {
	defer observability.TrackQuery("create", "post_images")()
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, image.PostID)
	return nil
}

func (r *postRepository) ListImages(ctx context.Context, postID uint) ([]models.PostImage, error) {
	defer observability.TrackQuery("list", "post_images")()
	var images []models.PostImage
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("position ASC").
		Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}
