package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Email:        "client@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleClient,
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	tokens := NewTokenManager("test-secret", 15*time.Minute)
	svc := NewAuthService(repo, tokens)
	ctx := context.Background()

	user := testUser(t, "correct-horse")
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	result, err := svc.Login(ctx, user.Email, "correct-horse")
	assert.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, user.ID, result.User.ID)

	parsedID, role, err := tokens.ParseAccess(result.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, parsedID)
	assert.Equal(t, models.RoleClient, role)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, NewTokenManager("test-secret", 15*time.Minute))
	ctx := context.Background()

	user := testUser(t, "correct-horse")
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

	_, err := svc.Login(ctx, user.Email, "battery-staple")
	assert.Error(t, err)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, NewTokenManager("test-secret", 15*time.Minute))
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Login(ctx, "ghost@example.com", "whatever")
	assert.Error(t, err)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeUnauthorized, appErr.Code)
}

func TestTokenManager_ParseRejectsForeignSecret(t *testing.T) {
	user := testUser(t, "pw")

	token, _, err := NewTokenManager("secret-a", time.Minute).Generate(user)
	assert.NoError(t, err)

	_, _, err = NewTokenManager("secret-b", time.Minute).ParseAccess(token)
	assert.Error(t, err)
}
