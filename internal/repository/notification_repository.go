package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// ErrNotificationNotFound возвращается, когда уведомление не найдено.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление и присваивает ему серверный id.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, priority, action_required, is_read, project_id, milestone_id)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.Priority,
		notification.ActionRequired,
		notification.ProjectID,
		notification.MilestoneID,
	).Scan(&notification.ID, &notification.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}

	return nil
}

// ListByUser возвращает уведомления пользователя, новые сверху.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	query := `SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("notification repository: list by user %w", err)
	}

	return notifications, nil
}

// MarkAsRead отмечает уведомление пользователя как прочитанное.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notification repository: mark as read %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification repository: mark as read rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("notification repository: mark all as read %w", err)
	}

	return nil
}

// Delete удаляет уведомление пользователя.
func (r *NotificationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notification repository: delete %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification repository: delete rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений пользователя.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("notification repository: count unread %w", err)
	}

	return count, nil
}

// Fetch реализует notify.RemoteStore поверх репозитория.
func (r *NotificationRepository) Fetch(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return r.ListByUser(ctx, userID)
}

// MarkRead реализует notify.RemoteStore поверх репозитория.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return r.MarkAsRead(ctx, userID, id)
}

// MarkAllRead реализует notify.RemoteStore поверх репозитория.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return r.MarkAllAsRead(ctx, userID)
}
