package service

import (
	"context"
	"strings"
	"time"

	"tradeconnect/internal/cache"
	"tradeconnect/internal/middleware"
	"tradeconnect/internal/models"
	"tradeconnect/internal/observability"
	"tradeconnect/internal/repository"
	"tradeconnect/internal/storage"

	"log/slog"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxContentLen     = 50000
)

// PostService owns the listing lifecycle.
type PostService struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	blobs      storage.BlobStore // nil when no store is configured
	isAdmin    func(ctx context.Context, userID uint) (bool, error)
	now        func() time.Time
}

// NewPostService returns a new PostService.
func NewPostService(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	blobs storage.BlobStore,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		posts:      posts,
		categories: categories,
		blobs:      blobs,
		isAdmin:    isAdmin,
		now:        time.Now,
	}
}

// CreatePostInput is the listing creation payload.
type CreatePostInput struct {
	AuthorID    uint
	Title       string
	Description string
	Content     string
	Category    string
	Tags        []string

	Price        float64
	Currency     string
	PriceType    string
	IsNegotiable bool
	Condition    string
	Brand        string
	Model        string
	Quantity     int

	PostType string
	Urgency  string

	Location string
	City     string
	Country  string

	ShippingAvailable bool
	ShippingCost      float64

	ContactEmail string
	ContactPhone string
	Website      string
	IsBusiness   bool

	AvailableFrom  *time.Time
	AvailableUntil *time.Time
	ExpiresAt      *time.Time

	Publish bool
}

// Create validates and stores a new listing. When Publish is set the
// listing goes live immediately and PublishedAt is stamped.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, models.NewValidationError("Description is required")
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 2000 characters)")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}
	if in.Category == "" {
		return nil, models.NewValidationError("Category is required")
	}
	category, err := s.categories.GetBySlug(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, models.NewValidationError("Unknown category")
	}

	postType := in.PostType
	if postType == "" {
		postType = models.PostTypeSupply
	}
	if !models.ValidPostType(postType) {
		return nil, models.NewValidationError("Invalid post_type")
	}

	priceType := in.PriceType
	if priceType == "" {
		priceType = models.PriceTypeFixed
	}
	if !models.ValidPriceType(priceType) {
		return nil, models.NewValidationError("Invalid price_type")
	}
	if in.Price < 0 {
		return nil, models.NewValidationError("Price cannot be negative")
	}
	if in.Condition != "" && !models.ValidCondition(in.Condition) {
		return nil, models.NewValidationError("Invalid condition")
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	post := &models.Post{
		AuthorID:          in.AuthorID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Content:           in.Content,
		Category:          in.Category,
		Tags:              in.Tags,
		Price:             in.Price,
		Currency:          currency,
		PriceType:         priceType,
		IsNegotiable:      in.IsNegotiable,
		Condition:         in.Condition,
		Brand:             in.Brand,
		Model:             in.Model,
		Quantity:          quantity,
		PostType:          postType,
		Status:            models.PostStatusActive,
		Urgency:           in.Urgency,
		Location:          in.Location,
		City:              in.City,
		Country:           in.Country,
		ShippingAvailable: in.ShippingAvailable,
		ShippingCost:      in.ShippingCost,
		ContactEmail:      in.ContactEmail,
		ContactPhone:      in.ContactPhone,
		Website:           in.Website,
		IsBusiness:        in.IsBusiness,
		AvailableFrom:     in.AvailableFrom,
		AvailableUntil:    in.AvailableUntil,
		ExpiresAt:         in.ExpiresAt,
	}
	if in.Publish {
		now := s.now()
		post.IsPublished = true
		post.PublishedAt = &now
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	if post.IsPublished {
		observability.PostsPublished.Inc()
	}
	return post, nil
}

// UpdatePostInput is a partial listing patch; nil fields are unchanged.
type UpdatePostInput struct {
	Title        *string
	Description  *string
	Content      *string
	Category     *string
	Tags         []string
	Price        *float64
	Currency     *string
	PriceType    *string
	IsNegotiable *bool
	Condition    *string
	Brand        *string
	Model        *string
	Quantity     *int
	Status       *string
	Urgency      *string
	Location     *string
	City         *string
	Country      *string
	ExpiresAt    *time.Time
	Publish      *bool
}

// Update applies a partial patch. Only the author or an admin may update.
// PublishedAt is stamped on the first transition to published and never
// cleared afterwards, even when the listing is unpublished again.
func (s *PostService) Update(ctx context.Context, userID, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, post.AuthorID); err != nil {
		return nil, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, models.NewValidationError("Title cannot be empty")
		}
		if len(*in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return nil, models.NewValidationError("Description cannot be empty")
		}
		post.Description = *in.Description
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, models.NewValidationError("Content cannot be empty")
		}
		post.Content = *in.Content
	}
	if in.Category != nil {
		category, err := s.categories.GetBySlug(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, models.NewValidationError("Unknown category")
		}
		post.Category = *in.Category
	}
	if in.Tags != nil {
		post.Tags = in.Tags
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, models.NewValidationError("Price cannot be negative")
		}
		post.Price = *in.Price
	}
	if in.Currency != nil {
		post.Currency = *in.Currency
	}
	if in.PriceType != nil {
		if !models.ValidPriceType(*in.PriceType) {
			return nil, models.NewValidationError("Invalid price_type")
		}
		post.PriceType = *in.PriceType
	}
	if in.IsNegotiable != nil {
		post.IsNegotiable = *in.IsNegotiable
	}
	if in.Condition != nil {
		if *in.Condition != "" && !models.ValidCondition(*in.Condition) {
			return nil, models.NewValidationError("Invalid condition")
		}
		post.Condition = *in.Condition
	}
	if in.Brand != nil {
		post.Brand = *in.Brand
	}
	if in.Model != nil {
		post.Model = *in.Model
	}
	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			return nil, models.NewValidationError("Quantity must be positive")
		}
		post.Quantity = *in.Quantity
	}
	if in.Status != nil {
		if !models.ValidStatus(*in.Status) {
			return nil, models.NewValidationError("Invalid status")
		}
		post.Status = *in.Status
	}
	if in.Urgency != nil {
		post.Urgency = *in.Urgency
	}
	if in.Location != nil {
		post.Location = *in.Location
	}
	if in.City != nil {
		post.City = *in.City
	}
	if in.Country != nil {
		post.Country = *in.Country
	}
	if in.ExpiresAt != nil {
		post.ExpiresAt = in.ExpiresAt
	}

	if in.Publish != nil {
		wasPublished := post.IsPublished
		post.IsPublished = *in.Publish
		if *in.Publish && post.PublishedAt == nil {
			now := s.now()
			post.PublishedAt = &now
		}
		if *in.Publish && !wasPublished {
			observability.PostsPublished.Inc()
		}
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes the listing and all dependent rows. Only the author or an
// admin may delete. Blob deletion happens best-effort after the database
// transaction commits; an orphaned blob is preferable to a half-deleted post.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, userID, post.AuthorID); err != nil {
		return err
	}

	keys, err := s.posts.Delete(ctx, postID)
	if err != nil {
		return err
	}
	s.cleanupBlobs(ctx, keys)
	return nil
}

func (s *PostService) cleanupBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete blob",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// GetByID returns the listing with author and images, resolving image URLs
// through the blob store.
func (s *PostService) GetByID(ctx context.Context, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.resolveImageURLs(post.Images)
	return post, nil
}

func (s *PostService) resolveImageURLs(images []models.PostImage) {
	if s.blobs == nil {
		return
	}
	for i := range images {
		images[i].URL = s.blobs.PublicURL(images[i].StorageKey)
	}
}

// ListByAuthor returns the author's listings. Drafts are included only when
// the requester is the author or an admin.
func (s *PostService) ListByAuthor(ctx context.Context, requesterID, authorID uint, limit, offset int) ([]models.Post, error) {
	includeDrafts := requesterID == authorID
	if !includeDrafts && requesterID != 0 {
		admin, err := s.isAdmin(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		includeDrafts = admin
	}
	posts, err := s.posts.ListByAuthor(ctx, authorID, includeDrafts, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		s.resolveImageURLs(posts[i].Images)
	}
	return posts, nil
}

// ListPublished returns a filtered page of live listings.
func (s *PostService) ListPublished(ctx context.Context, filter repository.PostFilter) (*repository.PostPage, error) {
	page, err := s.posts.ListPublished(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range page.Posts {
		s.resolveImageURLs(page.Posts[i].Images)
	}
	return page, nil
}

// Search is substring search over title and description of live listings.
func (s *PostService) Search(ctx context.Context, query string, limit int, cursor uint) (*repository.PostPage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.ListPublished(ctx, repository.PostFilter{
		Search: strings.TrimSpace(query),
		Limit:  limit,
		Cursor: cursor,
	})
}

// ListFeatured returns featured listings topped up with recent ones.
func (s *PostService) ListFeatured(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := cache.Aside(ctx, cache.FeaturedKey, &posts, cache.FeaturedTTL, func() error {
		var fetchErr error
		posts, fetchErr = s.posts.ListFeatured(ctx, limit)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	for i := range posts {
		s.resolveImageURLs(posts[i].Images)
	}
	return posts, nil
}

// Stats returns published-listing aggregates, cached briefly.
func (s *PostService) Stats(ctx context.Context) (*repository.PostStats, error) {
	var stats repository.PostStats
	err := cache.Aside(ctx, cache.PostStatsKey, &stats, cache.PostStatsTTL, func() error {
		fetched, fetchErr := s.posts.Stats(ctx)
		if fetchErr != nil {
			return fetchErr
		}
		stats = *fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// UploadURL returns a presigned upload target for a listing image.
func (s *PostService) UploadURL(ctx context.Context, filename, contentType string) (*storage.UploadTarget, error) {
	if s.blobs == nil {
		return nil, models.NewValidationError("File storage is not configured")
	}
	if filename == "" {
		return nil, models.NewValidationError("Filename is required")
	}
	target, err := s.blobs.PresignUpload(ctx, filename, contentType)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return target, nil
}

// AddImageInput attaches an already-uploaded blob to a listing.
type AddImageInput struct {
	StorageKey string
	Filename   string
	Size       int64
	MimeType   string
	Alt        string
}

// AddImage records an uploaded image against the listing. Only the author
// may attach images; positions are appended in upload order.
func (s *PostService) AddImage(ctx context.Context, userID, postID uint, in AddImageInput) (*models.PostImage, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewForbiddenError("Only the author can add images")
	}
	if in.StorageKey == "" {
		return nil, models.NewValidationError("Storage key is required")
	}

	existing, err := s.posts.ListImages(ctx, postID)
	if err != nil {
		return nil, err
	}

	image := &models.PostImage{
		PostID:     postID,
		StorageKey: in.StorageKey,
		Filename:   in.Filename,
		Size:       in.Size,
		MimeType:   in.MimeType,
		Alt:        in.Alt,
		Position:   len(existing),
	}
	if err := s.posts.AddImage(ctx, image); err != nil {
		return nil, err
	}
	if s.blobs != nil {
		image.URL = s.blobs.PublicURL(image.StorageKey)
	}
	return image, nil
}

// authorize passes when userID owns the resource or is an admin.
func (s *PostService) authorize(ctx context.Context, userID, ownerID uint) error {
	if userID == ownerID {
		return nil
	}
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError("You do not have permission to modify this post")
	}
	return nil
}
