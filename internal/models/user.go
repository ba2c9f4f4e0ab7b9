// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User roles. There are exactly two; everything finer-grained is derived
// from ownership checks in the services.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an authenticated account. Password holds the bcrypt hash
// and is never serialized.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Profile   *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Posts     []Post    `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
}

// Profile is the public-facing representation of a user. Role is a read
// cache of User.Role and is recomputed from the account on every read, so a
// stale value here never grants privileges.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `gorm:"not null;default:user" json:"role"`
	Location    string    `json:"location"`
	IsVerified  bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
