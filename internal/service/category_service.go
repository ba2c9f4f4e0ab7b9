package service

import (
	"context"
	"regexp"
	"strings"

	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CategoryService manages the browse taxonomy.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService returns a new CategoryService.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// ListActive returns active categories ordered by position.
func (s *CategoryService) ListActive(ctx context.Context) ([]models.Category, error) {
	return s.categories.ListActive(ctx)
}

// CreateCategoryInput is the admin category creation payload.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Description string
	Icon        string
	Color       string
	Position    int
}

// Create adds a category. The slug must be unique and URL-safe.
func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.NewValidationError("Name is required")
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		return nil, models.NewValidationError("Slug is required")
	}
	if !slugPattern.MatchString(slug) {
		return nil, models.NewValidationError("Slug must be lowercase letters, digits, and hyphens")
	}

	category := &models.Category{
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: in.Description,
		Icon:        in.Icon,
		Color:       in.Color,
		IsActive:    true,
		Position:    in.Position,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// SeedDefaults installs the starter taxonomy. It refuses to run when any
// category already exists so a re-run cannot duplicate or reorder the set.
func (s *CategoryService) SeedDefaults(ctx context.Context) ([]models.Category, error) {
	count, err := s.categories.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.NewConflictError("Categories already seeded")
	}
	defaults := DefaultCategories()
	if err := s.categories.CreateBatch(ctx, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

// DefaultCategories is the starter taxonomy installed on first seed.
func DefaultCategories() []models.Category {
	return []models.Category{
		{Name: "Electronics", Slug: "electronics", Icon: "Smartphone", Color: "#3B82F6", IsActive: true, Position: 0},
		{Name: "Fashion", Slug: "fashion", Icon: "Shirt", Color: "#EC4899", IsActive: true, Position: 1},
		{Name: "Home & Garden", Slug: "home-garden", Icon: "Home", Color: "#10B981", IsActive: true, Position: 2},
		{Name: "Automotive", Slug: "automotive", Icon: "Car", Color: "#F59E0B", IsActive: true, Position: 3},
		{Name: "Sports", Slug: "sports", Icon: "Trophy", Color: "#8B5CF6", IsActive: true, Position: 4},
		{Name: "Books", Slug: "books", Icon: "Book", Color: "#EF4444", IsActive: true, Position: 5},
		{Name: "Services", Slug: "services", Icon: "Briefcase", Color: "#06B6D4", IsActive: true, Position: 6},
		{Name: "Real Estate", Slug: "real-estate", Icon: "Building", Color: "#84CC16", IsActive: true, Position: 7},
	}
}
