package models

import (
	"time"
)

// Comment is a threaded comment on a post. Threads are one level deep:
// ParentID of a reply always points at a top-level comment.
//
// Comments are soft-deleted via IsDeleted so that reply threads keep their
// anchor rows; deleted comments are filtered out of reads and excluded from
// the post's CommentCount.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	IsDeleted bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentThread is a top-level comment with its replies, both oldest-first.
type CommentThread struct {
	Comment
	AuthorName string          `json:"author_name"`
	Replies    []CommentThread `json:"replies,omitempty"`
}
