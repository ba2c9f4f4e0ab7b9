// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"sort"
	"time"

	"tradeconnect/internal/models"
	"tradeconnect/internal/observability"

	"gorm.io/gorm"
)

// PlatformAnalytics is the admin dashboard aggregate.
type PlatformAnalytics struct {
	Totals struct {
		Users          int64 `json:"users"`
		Posts          int64 `json:"posts"`
		PublishedPosts int64 `json:"published_posts"`
		Comments       int64 `json:"comments"`
		Views          int64 `json:"views"`
	} `json:"totals"`
	Last30Days struct {
		NewUsers    int64 `json:"new_users"`
		NewPosts    int64 `json:"new_posts"`
		NewComments int64 `json:"new_comments"`
	} `json:"last_30_days"`
	Last7Days struct {
		NewUsers int64 `json:"new_users"`
		NewPosts int64 `json:"new_posts"`
		NewViews int64 `json:"new_views"`
	} `json:"last_7_days"`
	Categories []CategoryAnalytics `json:"categories"`
}

// CategoryAnalytics is the per-category breakdown within PlatformAnalytics.
type CategoryAnalytics struct {
	Category  string `json:"category"`
	Total     int64  `json:"total"`
	Published int64  `json:"published"`
}

// AdminUserRow is a profile enriched with the user's listing count.
type AdminUserRow struct {
	models.Profile
	PostCount int64 `json:"post_count"`
}

// ActivityItem is one entry in the recent-activity feed. Type is "post" or
// "signup".
type ActivityItem struct {
	Type      string    `json:"type"`
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalyticsRepository serves the admin back-office queries.
type AnalyticsRepository interface {
	PlatformAnalytics(ctx context.Context) (*PlatformAnalytics, error)
	ListUsers(ctx context.Context, search string, limit, offset int) ([]AdminUserRow, error)
	ListPosts(ctx context.Context, filter string, limit, offset int) ([]models.Post, error)
	RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository returns a new AnalyticsRepository implementation.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) PlatformAnalytics(ctx context.Context) (*PlatformAnalytics, error) {
	defer observability.TrackQuery("analytics", "platform")()

	a := &PlatformAnalytics{}
	db := r.db.WithContext(ctx)

	monthAgo := time.Now().AddDate(0, 0, -30)
	weekAgo := time.Now().AddDate(0, 0, -7)

	var countErr error
	count := func(dest *int64, q *gorm.DB) {
		if countErr != nil {
			return
		}
		countErr = q.Count(dest).Error
	}

	count(&a.Totals.Users, db.Model(&models.User{}))
	count(&a.Totals.Posts, db.Model(&models.Post{}))
	count(&a.Totals.PublishedPosts, db.Model(&models.Post{}).Where("is_published = ?", true))
	count(&a.Totals.Comments, db.Model(&models.Comment{}).Where("is_deleted = ?", false))
	count(&a.Totals.Views, db.Model(&models.PostView{}))
	count(&a.Last30Days.NewUsers, db.Model(&models.User{}).Where("created_at > ?", monthAgo))
	count(&a.Last30Days.NewPosts, db.Model(&models.Post{}).Where("created_at > ?", monthAgo))
	count(&a.Last30Days.NewComments, db.Model(&models.Comment{}).Where("created_at > ?", monthAgo))
	count(&a.Last7Days.NewUsers, db.Model(&models.User{}).Where("created_at > ?", weekAgo))
	count(&a.Last7Days.NewPosts, db.Model(&models.Post{}).Where("created_at > ?", weekAgo))
	count(&a.Last7Days.NewViews, db.Model(&models.PostView{}).Where("created_at > ?", weekAgo))
	if countErr != nil {
		return nil, models.NewInternalError(countErr)
	}

	type categoryRow struct {
		Category  string
		Total     int64
		Published int64
	}
	var rows []categoryRow
	if err := db.Model(&models.Post{}).
		Select("category, COUNT(*) AS total, SUM(CASE WHEN is_published THEN 1 ELSE 0 END) AS published").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		a.Categories = append(a.Categories, CategoryAnalytics(row))
	}
	sort.Slice(a.Categories, func(i, j int) bool {
		return a.Categories[i].Total > a.Categories[j].Total
	})

	return a, nil
}

func (r *analyticsRepository) ListUsers(ctx context.Context, search string, limit, offset int) ([]AdminUserRow, error) {
	defer observability.TrackQuery("list", "profiles")()

	q := r.db.WithContext(ctx).
		Table("profiles").
		Select("profiles.*, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN posts ON posts.author_id = profiles.user_id").
		Group("profiles.id")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("profiles.display_name LIKE ? OR profiles.email LIKE ?", like, like)
	}

	var rows []AdminUserRow
	if err := q.Order("profiles.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *analyticsRepository) ListPosts(ctx context.Context, filter string, limit, offset int) ([]models.Post, error) {
	defer observability.TrackQuery("list", "posts")()

	q := r.db.WithContext(ctx).Preload("Author")
	switch filter {
	case "published":
		q = q.Where("is_published = ?", true)
	case "draft":
		q = q.Where("is_published = ?", false)
	case "featured":
		q = q.Where("is_featured = ?", true)
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

func (r *analyticsRepository) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	defer observability.TrackQuery("list", "activity")()
	if limit <= 0 {
		limit = 20
	}

	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Select("id", "title", "created_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var profiles []models.Profile
	if err := r.db.WithContext(ctx).
		Select("id", "user_id", "display_name", "created_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	items := make([]ActivityItem, 0, len(posts)+len(profiles))
	for _, p := range posts {
		items = append(items, ActivityItem{Type: "post", ID: p.ID, Title: p.Title, CreatedAt: p.CreatedAt})
	}
	for _, p := range profiles {
		items = append(items, ActivityItem{Type: "signup", ID: p.UserID, Title: p.DisplayName, CreatedAt: p.CreatedAt})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
