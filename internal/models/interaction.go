package models

import (
	"time"
)

// Like marks a user's like on a post.
// The combination of PostID and UserID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite marks a user's bookmark on a post.
// The combination of PostID and UserID must be unique.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_favorites_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostView records a deduplicated view of a post. UserID is nil for
// anonymous viewers, in which case IPAddress identifies the viewer for the
// dedup window.
type PostView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// UserInteractions summarizes what a user has done with a post.
type UserInteractions struct {
	Liked     bool `json:"liked"`
	Favorited bool `json:"favorited"`
}
