// Package service contains the domain logic sitting between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Token constants. Role is embedded in the token, so a role change takes
// effect on the next login; the staleness window is bounded by TokenTTL.
const (
	TokenIssuer = "tradeconnect-api"
	TokenTTL    = 24 * time.Hour
)

// TokenIdentity is the authenticated identity carried by a verified token.
type TokenIdentity struct {
	UserID uint
	Role   string
}

// AuthService implements registration, credential checks, and the JWT
// session lifecycle.
type AuthService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	secret   string
}

// NewAuthService returns a new AuthService signing tokens with secret.
func NewAuthService(users repository.UserRepository, profiles repository.ProfileRepository, secret string) *AuthService {
	return &AuthService{
		users:    users,
		profiles: profiles,
		secret:   secret,
	}
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a user account and its profile. Emails are matched
// case-insensitively; a duplicate registration fails with CONFLICT.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, models.NewValidationError("A valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, models.NewValidationError("Password must be at least 8 characters")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("An account with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &models.Profile{
		UserID:      user.ID,
		DisplayName: displayNameFor(user),
		Email:       email,
		Role:        models.RoleUser,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	user.Profile = profile

	return user, nil
}

// Authenticate verifies the credentials. The error message never reveals
// whether the email exists.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	return user, nil
}

// IssueToken creates a signed session token for the user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if s.secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	subject := strconv.FormatUint(uint64(user.ID), 10)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": user.Role,
		"iss":  TokenIssuer,
		// The token is scoped to its own subject.
		"aud": subject,
		"exp": now.Add(TokenTTL).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken validates the signature, expiry, issuer, and audience and
// returns the embedded identity.
func (s *AuthService) VerifyToken(tokenString string) (*TokenIdentity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != TokenIssuer {
		return nil, models.NewUnauthorizedError("Invalid token issuer")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != sub {
		return nil, models.NewUnauthorizedError("Invalid token audience")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = models.RoleUser
	}

	return &TokenIdentity{UserID: uint(userID), Role: role}, nil
}

// generateJTI creates a unique JWT ID to prevent replay attacks.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

// displayNameFor derives the default display name from the account: the
// name when present, otherwise the email local part.
func displayNameFor(user *models.User) string {
	if user.Name != "" {
		return user.Name
	}
	if at := strings.Index(user.Email, "@"); at > 0 {
		return user.Email[:at]
	}
	return user.Email
}
