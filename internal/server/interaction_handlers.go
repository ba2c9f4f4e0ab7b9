// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"tradeconnect/internal/models"
	"tradeconnect/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.interactionService.ToggleLike(c.Context(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ToggleFavorite handles POST /api/posts/:id/favorite
func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.interactionService.ToggleFavorite(c.Context(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	threads, err := s.interactionService.GetComments(c.Context(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": threads})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.interactionService.AddComment(c.Context(), service.AddCommentInput{
		PostID:   postID,
		AuthorID: currentUserID(c),
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	if _, err := s.parseID(c, "id"); err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.interactionService.DeleteComment(c.Context(), currentUserID(c), commentID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// GetMyInteractions handles GET /api/posts/:id/interactions
func (s *Server) GetMyInteractions(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	interactions, err := s.interactionService.GetUserInteractions(c.Context(), postID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(interactions)
}

// GetLikedPosts handles GET /api/users/me/likes
func (s *Server) GetLikedPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.interactionService.ListLikedPosts(c.Context(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// GetFavoritePosts handles GET /api/users/me/favorites
func (s *Server) GetFavoritePosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.interactionService.ListFavoritePosts(c.Context(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}
