package cache

import (
	"context"
	"fmt"
	"time"

	"tradeconnect/internal/observability"
)

const (
	PostKeyPrefix    = "post:%d"
	ProfileKeyPrefix = "profile:%d"
	CategoriesKey    = "categories:active"
	PostStatsKey     = "posts:stats"
	FeaturedKey      = "posts:featured"
)

const (
	PostTTL       = 5 * time.Minute
	ProfileTTL    = 5 * time.Minute
	CategoriesTTL = 30 * time.Minute
	PostStatsTTL  = 2 * time.Minute
	FeaturedTTL   = 2 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if Client == nil {
		return
	}
	ctx, span := observability.TraceRedisOperation(ctx, "del")
	defer span.End()
	Client.Del(ctx, key)
}

// InvalidatePost drops the detail entry and the listing aggregates that may
// embed this post.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, PostStatsKey)
	Invalidate(ctx, FeaturedKey)
}

func InvalidateProfile(ctx context.Context, userID uint) {
	Invalidate(ctx, ProfileKey(userID))
}

func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoriesKey)
}
