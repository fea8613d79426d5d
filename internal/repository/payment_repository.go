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

// ErrPaymentNotFound возвращается, когда платёж не найден.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepository отвечает за работу с платежами по этапам.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт экземпляр репозитория.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create регистрирует новую попытку оплаты этапа.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (milestone_id, project_id, payer_id, amount, status, method, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		payment.MilestoneID,
		payment.ProjectID,
		payment.PayerID,
		payment.Amount,
		payment.Status,
		payment.Method,
		payment.TransactionID,
	).Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return fmt.Errorf("payment repository: create %w", err)
	}

	return nil
}

// GetByID возвращает платёж по идентификатору.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return common.QueryOne[models.Payment](ctx, r.db, ErrPaymentNotFound, `SELECT * FROM payments WHERE id = $1`, id)
}

// ListByMilestone возвращает все попытки оплаты этапа.
func (r *PaymentRepository) ListByMilestone(ctx context.Context, milestoneID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	query := `SELECT * FROM payments WHERE milestone_id = $1 ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &payments, query, milestoneID); err != nil {
		return nil, fmt.Errorf("payment repository: list by milestone %w", err)
	}

	return payments, nil
}

// ListByUser возвращает плоский список платежей пользователя —
// источник строк для финансовой сводки.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	query := `
		SELECT p.* FROM payments p
		JOIN projects pr ON pr.id = p.project_id
		WHERE p.payer_id = $1 OR pr.freelancer_id = $1
		ORDER BY p.created_at ASC
	`

	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, fmt.Errorf("payment repository: list by user %w", err)
	}

	return payments, nil
}

// UpdateStatus переводит платёж в новый статус, при terminal статусах
// фиксируя paid_at.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE payments
		SET status = $1,
		    paid_at = CASE WHEN $1 IN ('completed', 'released') THEN COALESCE(paid_at, NOW()) ELSE paid_at END
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("payment repository: update status %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment repository: update status rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

// ReleaseMilestonePayments переводит удержанные платежи этапа в released
// (выплата фрилансеру после приёмки).
func (r *PaymentRepository) ReleaseMilestonePayments(ctx context.Context, milestoneID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $1, paid_at = COALESCE(paid_at, NOW())
		WHERE milestone_id = $2 AND status = $3
	`

	if _, err := r.db.ExecContext(ctx, query, models.PaymentStatusReleased, milestoneID, models.PaymentStatusHeld); err != nil {
		return fmt.Errorf("payment repository: release milestone payments %w", err)
	}

	return nil
}
