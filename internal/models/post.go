// Package models contains data structures for the application's domain models.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Post types describe which side of a trade a listing sits on.
const (
	PostTypeSupply   = "supply"
	PostTypeDemand   = "demand"
	PostTypeService  = "service"
	PostTypeExchange = "exchange"
)

// Listing lifecycle states.
const (
	PostStatusActive  = "active"
	PostStatusSold    = "sold"
	PostStatusExpired = "expired"
	PostStatusPaused  = "paused"
)

// Pricing models.
const (
	PriceTypeFixed      = "fixed"
	PriceTypeNegotiable = "negotiable"
	PriceTypeAuction    = "auction"
	PriceTypeFree       = "free"
)

// Item conditions.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// StringList is a []string stored as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// Post represents a marketplace listing.
//
// The four counters are cached aggregates of the interaction tables. Every
// mutation of an interaction row adjusts its counter inside the same
// transaction, so counter == row count holds at all times.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title    string `gorm:"not null" json:"title"`
	// Description is the short teaser, Content the full body.
	Description string     `gorm:"type:text;not null" json:"description"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Category    string     `gorm:"not null;index" json:"category"`
	Tags        StringList `gorm:"type:text" json:"tags"`

	// Commerce
	Price        float64 `json:"price"`
	Currency     string  `gorm:"not null;default:USD" json:"currency"`
	PriceType    string  `gorm:"not null;default:fixed" json:"price_type"`
	IsNegotiable bool    `json:"is_negotiable"`
	Condition    string  `json:"condition"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Quantity     int     `gorm:"not null;default:1" json:"quantity"`

	PostType string `gorm:"not null;default:supply;index" json:"post_type"`
	Status   string `gorm:"not null;default:active;index" json:"status"`
	Urgency  string `json:"urgency"`

	// Location
	Location string `json:"location"`
	City     string `gorm:"index:idx_posts_city_country" json:"city"`
	Country  string `gorm:"index:idx_posts_city_country" json:"country"`

	// Shipping
	ShippingAvailable bool    `json:"shipping_available"`
	ShippingCost      float64 `json:"shipping_cost"`

	// Contact / business
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Website      string `json:"website"`
	IsBusiness   bool   `json:"is_business"`

	// Availability window
	AvailableFrom  *time.Time `json:"available_from,omitempty"`
	AvailableUntil *time.Time `json:"available_until,omitempty"`
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at,omitempty"`

	IsPublished bool `gorm:"not null;default:false;index" json:"is_published"`
	IsFeatured  bool `gorm:"not null;default:false;index" json:"is_featured"`
	// PublishedAt is set on the first transition to published and never
	// changes afterwards, even if the listing is unpublished later.
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// Cached interaction counters, never negative.
	ViewCount     int `gorm:"not null;default:0" json:"view_count"`
	LikeCount     int `gorm:"not null;default:0" json:"like_count"`
	CommentCount  int `gorm:"not null;default:0" json:"comment_count"`
	FavoriteCount int `gorm:"not null;default:0" json:"favorite_count"`

	Images []PostImage `gorm:"foreignKey:PostID" json:"images,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostImage is an image attached to a listing, stored in the blob store
// under StorageKey.
type PostImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	StorageKey string    `gorm:"not null" json:"storage_key"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	Alt        string    `json:"alt"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	URL        string    `gorm:"-" json:"url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidPostType reports whether t is one of the listing types.
func ValidPostType(t string) bool {
	switch t {
	case PostTypeSupply, PostTypeDemand, PostTypeService, PostTypeExchange:
		return true
	}
	return false
}

// ValidPriceType reports whether t is one of the pricing models.
func ValidPriceType(t string) bool {
	switch t {
	case PriceTypeFixed, PriceTypeNegotiable, PriceTypeAuction, PriceTypeFree:
		return true
	}
	return false
}

// ValidCondition reports whether c is a known item condition.
func ValidCondition(c string) bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known listing status.
func ValidStatus(s string) bool {
	switch s {
	case PostStatusActive, PostStatusSold, PostStatusExpired, PostStatusPaused:
		return true
	}
	return false
}
