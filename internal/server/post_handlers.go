// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"time"

	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"
	"tradeconnect/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the shared payload of CreatePost and UpdatePost. Pointer
// fields let UpdatePost distinguish "absent" from "set to zero value".
type postRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Content     *string  `json:"content"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`

	Price        *float64 `json:"price"`
	Currency     *string  `json:"currency"`
	PriceType    *string  `json:"price_type"`
	IsNegotiable *bool    `json:"is_negotiable"`
	Condition    *string  `json:"condition"`
	Brand        *string  `json:"brand"`
	Model        *string  `json:"model"`
	Quantity     *int     `json:"quantity"`

	PostType *string `json:"post_type"`
	Status   *string `json:"status"`
	Urgency  *string `json:"urgency"`

	Location *string `json:"location"`
	City     *string `json:"city"`
	Country  *string `json:"country"`

	ShippingAvailable *bool    `json:"shipping_available"`
	ShippingCost      *float64 `json:"shipping_cost"`

	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	Website      *string `json:"website"`
	IsBusiness   *bool   `json:"is_business"`

	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	ExpiresAt      *time.Time `json:"expires_at"`

	Publish *bool `json:"publish"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.CreatePostInput{
		AuthorID:     userID,
		Title:        str(req.Title),
		Description:  str(req.Description),
		Content:      str(req.Content),
		Category:     str(req.Category),
		Tags:         req.Tags,
		Currency:     str(req.Currency),
		PriceType:    str(req.PriceType),
		Condition:    str(req.Condition),
		Brand:        str(req.Brand),
		Model:        str(req.Model),
		PostType:     str(req.PostType),
		Urgency:      str(req.Urgency),
		Location:     str(req.Location),
		City:         str(req.City),
		Country:      str(req.Country),
		ContactEmail: str(req.ContactEmail),
		ContactPhone: str(req.ContactPhone),
		Website:      str(req.Website),

		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
		ExpiresAt:      req.ExpiresAt,
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.IsNegotiable != nil {
		in.IsNegotiable = *req.IsNegotiable
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}
	if req.ShippingAvailable != nil {
		in.ShippingAvailable = *req.ShippingAvailable
	}
	if req.ShippingCost != nil {
		in.ShippingCost = *req.ShippingCost
	}
	if req.IsBusiness != nil {
		in.IsBusiness = *req.IsBusiness
	}
	if req.Publish != nil {
		in.Publish = *req.Publish
	}

	post, err := s.postService.Create(c.Context(), in)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts with filter and cursor query parameters.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	filter := repository.PostFilter{
		Category:  c.Query("category"),
		PostType:  c.Query("post_type"),
		Location:  c.Query("location"),
		City:      c.Query("city"),
		Country:   c.Query("country"),
		Condition: c.Query("condition"),
		Cursor:    uint(c.QueryInt("cursor", 0)),
		Limit:     parsePagination(c, 20).Limit,
	}
	if v := c.QueryFloat("min_price", -1); v >= 0 {
		filter.MinPrice = &v
	}
	if v := c.QueryFloat("max_price", -1); v >= 0 {
		filter.MaxPrice = &v
	}

	page, err := s.postService.ListPublished(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SearchPosts handles GET /api/posts/search?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	page, err := s.postService.Search(c.Context(), c.Query("q"),
		parsePagination(c, 20).Limit, uint(c.QueryInt("cursor", 0)))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetFeaturedPosts handles GET /api/posts/featured
func (s *Server) GetFeaturedPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListFeatured(c.Context(), parsePagination(c, 6).Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// GetPostStats handles GET /api/stats
func (s *Server) GetPostStats(c *fiber.Ctx) error {
	stats, err := s.postService.Stats(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetPost handles GET /api/posts/:id. Fetching a listing counts as a view
// (deduplicated per viewer) and, for signed-in callers, the response carries
// their like/favorite state.
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	userID, signedIn := s.optionalUserID(c)
	var viewerID *uint
	if signedIn {
		viewerID = &userID
	}
	// View tracking is best-effort; a failed insert must not break the read.
	if tracked, trackErr := s.interactionService.TrackView(ctx, id, viewerID, c.IP(), c.Get("User-Agent")); trackErr == nil && tracked {
		post.ViewCount++
	}

	response := fiber.Map{"post": post}
	if signedIn {
		interactions, err := s.interactionService.GetUserInteractions(ctx, id, userID)
		if err == nil {
			response["interactions"] = interactions
		}
	}
	return c.JSON(response)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	posts, err := s.postService.ListByAuthor(c.Context(), currentUserID(c), authorID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postRequest
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Update(c.Context(), userID, postID, service.UpdatePostInput{
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		Category:     req.Category,
		Tags:         req.Tags,
		Price:        req.Price,
		Currency:     req.Currency,
		PriceType:    req.PriceType,
		IsNegotiable: req.IsNegotiable,
		Condition:    req.Condition,
		Brand:        req.Brand,
		Model:        req.Model,
		Quantity:     req.Quantity,
		Status:       req.Status,
		Urgency:      req.Urgency,
		Location:     req.Location,
		City:         req.City,
		Country:      req.Country,
		ExpiresAt:    req.ExpiresAt,
		Publish:      req.Publish,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.Context(), userID, postID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// CreateUploadURL handles POST /api/uploads
func (s *Server) CreateUploadURL(c *fiber.Ctx) error {
	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	target, err := s.postService.UploadURL(c.Context(), req.Filename, req.ContentType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(target)
}

// AddPostImage handles POST /api/posts/:id/images
func (s *Server) AddPostImage(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		StorageKey string `json:"storage_key"`
		Filename   string `json:"filename"`
		Size       int64  `json:"size"`
		MimeType   string `json:"mime_type"`
		Alt        string `json:"alt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	image, err := s.postService.AddImage(c.Context(), userID, postID, service.AddImageInput{
		StorageKey: req.StorageKey,
		Filename:   req.Filename,
		Size:       req.Size,
		MimeType:   req.MimeType,
		Alt:        req.Alt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(image)
}
