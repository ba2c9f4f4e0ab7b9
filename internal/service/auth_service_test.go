package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tradeconnect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-not-for-production-0123456789"

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	createFn     func(context.Context, *models.User) error
	updateFn     func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:    func(_ context.Context, _ uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:     func(_ context.Context, _ *models.User) error { return nil },
		updateFn:     func(_ context.Context, _ *models.User) error { return nil },
	}
}

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	getByUserIDFn func(context.Context, uint) (*models.Profile, error)
	createFn      func(context.Context, *models.Profile) error
	updateFn      func(context.Context, *models.Profile) error
	listFn        func(context.Context, int, int) ([]models.Profile, error)
}

func (s *profileRepoStub) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.getByUserIDFn(ctx, userID)
}
func (s *profileRepoStub) Create(ctx context.Context, profile *models.Profile) error {
	return s.createFn(ctx, profile)
}
func (s *profileRepoStub) Update(ctx context.Context, profile *models.Profile) error {
	return s.updateFn(ctx, profile)
}
func (s *profileRepoStub) List(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	return s.listFn(ctx, limit, offset)
}

func noopProfileRepo() *profileRepoStub {
	return &profileRepoStub{
		getByUserIDFn: func(_ context.Context, _ uint) (*models.Profile, error) { return nil, nil },
		createFn:      func(_ context.Context, _ *models.Profile) error { return nil },
		updateFn:      func(_ context.Context, _ *models.Profile) error { return nil },
		listFn:        func(_ context.Context, _, _ int) ([]models.Profile, error) { return nil, nil },
	}
}

// assertErrorCode asserts that err is an AppError with the given code.
func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, "VALIDATION_ERROR")
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, "FORBIDDEN")
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(noopUserRepo(), noopProfileRepo(), testSecret)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{name: "empty email", input: RegisterInput{Password: "password123"}},
		{name: "missing at sign", input: RegisterInput{Email: "not-an-email", Password: "password123"}},
		{name: "short password", input: RegisterInput{Email: "a@b.com", Password: "short"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Register(ctx, tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestAuthService_Register_NormalizesEmail(t *testing.T) {
	t.Parallel()

	var created *models.User
	users := noopUserRepo()
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 1
		created = u
		return nil
	}
	svc := NewAuthService(users, noopProfileRepo(), testSecret)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Alice@Example.COM ",
		Password: "password123",
		Name:     "Alice",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "alice@example.com", user.Email)
	// The stored hash must not be the plaintext password.
	assert.NotEqual(t, "password123", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("password123")))
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByEmailFn = func(_ context.Context, _ string) (*models.User, error) {
		return &models.User{ID: 7, Email: "taken@example.com"}, nil
	}
	svc := NewAuthService(users, noopProfileRepo(), testSecret)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Password: "password123",
	})
	assertErrorCode(t, err, "CONFLICT")
}

func TestAuthService_Register_CreatesProfile(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 42
		return nil
	}
	var profile *models.Profile
	profiles := noopProfileRepo()
	profiles.createFn = func(_ context.Context, p *models.Profile) error {
		profile = p
		return nil
	}
	svc := NewAuthService(users, profiles, testSecret)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, uint(42), profile.UserID)
	// Without a name, the display name falls back to the email local part.
	assert.Equal(t, "bob", profile.DisplayName)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	users := noopUserRepo()
	users.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == "known@example.com" {
			return &models.User{ID: 1, Email: email, Password: string(hash)}, nil
		}
		return nil, nil
	}
	svc := NewAuthService(users, noopProfileRepo(), testSecret)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		user, err := svc.Authenticate(ctx, "known@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, uint(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Authenticate(ctx, "known@example.com", "wrong")
		assertErrorCode(t, err, "UNAUTHORIZED")
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Authenticate(ctx, "nobody@example.com", "correct-horse")
		assertErrorCode(t, err, "UNAUTHORIZED")
	})
}

func TestAuthService_TokenRoundtrip(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(noopUserRepo(), noopProfileRepo(), testSecret)

	token, err := svc.IssueToken(&models.User{ID: 9, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(9), identity.UserID)
	assert.Equal(t, models.RoleAdmin, identity.Role)
}

func TestAuthService_VerifyToken_Rejects(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(noopUserRepo(), noopProfileRepo(), testSecret)
	token, err := svc.IssueToken(&models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		_, err := svc.VerifyToken("not.a.token")
		assertErrorCode(t, err, "UNAUTHORIZED")
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]
		_, err := svc.VerifyToken(tampered)
		assertErrorCode(t, err, "UNAUTHORIZED")
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		other := NewAuthService(noopUserRepo(), noopProfileRepo(), "a-completely-different-secret-value")
		_, err := other.VerifyToken(token)
		assertErrorCode(t, err, "UNAUTHORIZED")
	})
}
