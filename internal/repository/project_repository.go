package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

// ErrProjectNotFound возвращается, когда проект не найден.
var ErrProjectNotFound = errors.New("project not found")

// ProjectRepository отвечает за работу с проектами.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository создаёт экземпляр репозитория.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByID возвращает проект по идентификатору.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return common.QueryOne[models.Project](ctx, r.db, ErrProjectNotFound, `SELECT * FROM projects WHERE id = $1`, id)
}

// UpdateStatus переводит проект в новый статус при совпадении текущего.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) error {
	query := `
		UPDATE projects
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, toStatus, id, fromStatus)
	if err != nil {
		return fmt.Errorf("project repository: update status %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("project repository: update status rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}
