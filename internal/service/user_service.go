package service

import (
	"context"
	"time"

	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"
)

// UserService manages public profiles.
type UserService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
}

// NewUserService returns a new UserService.
func NewUserService(users repository.UserRepository, profiles repository.ProfileRepository) *UserService {
	return &UserService{users: users, profiles: profiles}
}

// GetOrCreateProfile returns the user's profile, creating it if missing.
// Calling it repeatedly is idempotent; an existing profile only gets its
// UpdatedAt refreshed.
func (s *UserService) GetOrCreateProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		profile.UpdatedAt = time.Now()
		profile.Role = user.Role
		if err := s.profiles.Update(ctx, profile); err != nil {
			return nil, err
		}
		return profile, nil
	}

	profile = &models.Profile{
		UserID:      userID,
		DisplayName: displayNameFor(user),
		Email:       user.Email,
		Role:        user.Role,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfile returns the profile with Role recomputed from the account, so
// a stale cached role is corrected on read.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, models.NewNotFoundError("Profile", userID)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Role != user.Role {
		profile.Role = user.Role
		if err := s.profiles.Update(ctx, profile); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// UpdateProfileInput is a partial profile patch; nil fields are unchanged.
type UpdateProfileInput struct {
	DisplayName *string
	Location    *string
}

// UpdateProfile applies a partial update to the caller's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		if *in.DisplayName == "" {
			return nil, models.NewValidationError("Display name cannot be empty")
		}
		if len(*in.DisplayName) > 80 {
			return nil, models.NewValidationError("Display name too long (max 80 characters)")
		}
		profile.DisplayName = *in.DisplayName
	}
	if in.Location != nil {
		profile.Location = *in.Location
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles returns profiles newest-first.
func (s *UserService) ListProfiles(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	return s.profiles.List(ctx, limit, offset)
}
