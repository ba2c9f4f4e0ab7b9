// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetAnalytics handles GET /api/admin/analytics
func (s *Server) GetAnalytics(c *fiber.Ctx) error {
	analytics, err := s.adminService.Analytics(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(analytics)
}

// GetRecentActivity handles GET /api/admin/activity
func (s *Server) GetRecentActivity(c *fiber.Ctx) error {
	items, err := s.adminService.RecentActivity(c.Context(), parsePagination(c, 20).Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"activity": items})
}

// AdminListUsers handles GET /api/admin/users
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	rows, err := s.adminService.ListUsers(c.Context(), c.Query("search"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": rows})
}

// AdminListPosts handles GET /api/admin/posts
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.adminService.ListPosts(c.Context(), c.Query("filter", "all"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// ToggleFeatured handles POST /api/admin/posts/:id/feature
func (s *Server) ToggleFeatured(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	featured, err := s.adminService.ToggleFeatured(c.Context(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_featured": featured})
}

// ToggleUserVerification handles POST /api/admin/users/:id/verify
func (s *Server) ToggleUserVerification(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	verified, err := s.adminService.ToggleUserVerification(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_verified": verified})
}

// AdminDeletePost handles DELETE /api/admin/posts/:id
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.adminService.DeletePost(c.Context(), postID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}
