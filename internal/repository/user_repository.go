package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

// ErrUserNotFound возвращается, когда пользователь не найден.
var ErrUserNotFound = errors.New("user not found")

// UserRepository отвечает за работу с пользователями.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.QueryOne[models.User](ctx, r.db, ErrUserNotFound, `SELECT * FROM users WHERE id = $1`, id)
}

// GetByEmail возвращает пользователя по email (логин).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.QueryOne[models.User](ctx, r.db, ErrUserNotFound, `SELECT * FROM users WHERE email = $1`, email)
}
