package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthService инкапсулирует аутентификацию пользователей.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
}

// AuthResult возвращает итог авторизации.
type AuthResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
	}
}

// Login проверяет учётные данные и выпускает access токен.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверные учетные данные")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверные учетные данные")
	}

	token, exp, err := s.tokenManager.Generate(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeServer, "не удалось выпустить токен")
	}

	return &AuthResult{
		User:        user,
		AccessToken: token,
		ExpiresAt:   exp,
	}, nil
}
