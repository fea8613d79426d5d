package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

// ErrMilestoneNotFound возвращается, когда этап не найден.
var ErrMilestoneNotFound = errors.New("milestone not found")

// MilestoneRepository отвечает за работу с этапами проектов.
type MilestoneRepository struct {
	db *sqlx.DB
}

// NewMilestoneRepository создаёт экземпляр репозитория.
func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// Create создаёт новый этап (вызывается при утверждении шага плана).
func (r *MilestoneRepository) Create(ctx context.Context, milestone *models.Milestone) error {
	query := `
		INSERT INTO milestones (project_id, title, amount, status, deadline_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		milestone.ProjectID,
		milestone.Title,
		milestone.Amount,
		milestone.Status,
		milestone.DeadlineAt,
	).Scan(&milestone.ID, &milestone.CreatedAt, &milestone.UpdatedAt); err != nil {
		return fmt.Errorf("milestone repository: create %w", err)
	}

	return nil
}

// GetByID возвращает этап по идентификатору.
func (r *MilestoneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	milestone, err := common.QueryOne[models.Milestone](ctx, r.db, ErrMilestoneNotFound, `SELECT * FROM milestones WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	attachments, err := r.listAttachments(ctx, id)
	if err != nil {
		return nil, err
	}
	milestone.Attachments = attachments

	return milestone, nil
}

// ListByProject возвращает все этапы проекта в порядке создания.
// Этапы никогда не удаляются, терминальные статусы остаются для аудита.
func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	query := `SELECT * FROM milestones WHERE project_id = $1 ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &milestones, query, projectID); err != nil {
		return nil, fmt.Errorf("milestone repository: list by project %w", err)
	}

	return milestones, nil
}

// UpdateStatus переводит этап в новый статус при условии, что текущий статус
// равен ожидаемому. Возвращает ErrMilestoneNotFound, если строка не совпала:
// либо этап не существует, либо его уже перевели конкурирующим запросом.
func (r *MilestoneRepository) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, reviewNotes *string) error {
	query := `
		UPDATE milestones
		SET status = $1, review_notes = COALESCE($2, review_notes), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, toStatus, reviewNotes, id, fromStatus)
	if err != nil {
		return fmt.Errorf("milestone repository: update status %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("milestone repository: update status rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrMilestoneNotFound
	}

	return nil
}

// SubmitWithAttachments атомарно фиксирует файлы результата и переводит этап
// в submitted одной транзакцией: отдельный вызов смены статуса не нужен, и
// гонка двух конкурирующих обновлений статуса исключена.
func (r *MilestoneRepository) SubmitWithAttachments(ctx context.Context, id uuid.UUID, fromStatus string, attachments []models.MilestoneAttachment) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE milestones
			SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
		`, models.MilestoneStatusSubmitted, id, fromStatus)
		if err != nil {
			return fmt.Errorf("milestone repository: submit update status %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("milestone repository: submit rows affected %w", err)
		}
		if rowsAffected == 0 {
			return ErrMilestoneNotFound
		}

		for i := range attachments {
			if err := tx.QueryRowxContext(ctx, `
				INSERT INTO milestone_attachments (milestone_id, file_name, file_path, mime_type, size_bytes)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, created_at
			`,
				id,
				attachments[i].FileName,
				attachments[i].FilePath,
				attachments[i].MimeType,
				attachments[i].SizeBytes,
			).Scan(&attachments[i].ID, &attachments[i].CreatedAt); err != nil {
				return fmt.Errorf("milestone repository: submit insert attachment %w", err)
			}
			attachments[i].MilestoneID = id
		}

		return nil
	})
}

// listAttachments возвращает файлы результата этапа.
func (r *MilestoneRepository) listAttachments(ctx context.Context, milestoneID uuid.UUID) ([]models.MilestoneAttachment, error) {
	var attachments []models.MilestoneAttachment
	query := `SELECT * FROM milestone_attachments WHERE milestone_id = $1 ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &attachments, query, milestoneID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("milestone repository: list attachments %w", err)
	}

	return attachments, nil
}
