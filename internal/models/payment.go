package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment представляет попытку оплаты этапа. Один этап может накопить
// несколько попыток; в оплаченную сумму засчитываются только статусы
// из PaidPaymentStatuses.
type Payment struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MilestoneID   uuid.UUID  `db:"milestone_id" json:"milestone_id"`
	ProjectID     uuid.UUID  `db:"project_id" json:"project_id"`
	PayerID       uuid.UUID  `db:"payer_id" json:"payer_id"`
	Amount        float64    `db:"amount" json:"amount"`
	Status        string     `db:"status" json:"status"`
	Method        string     `db:"method" json:"method"`
	TransactionID *string    `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}

// EscrowTransaction — производное представление над Payment и Milestone,
// отдельно не хранится.
type EscrowTransaction struct {
	MilestoneID uuid.UUID  `json:"milestone_id"`
	PaymentID   uuid.UUID  `json:"payment_id"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
}

// ProjectAggregate — финансовая сводка по проекту, результат свёртки
// плоского списка платежей.
type ProjectAggregate struct {
	ProjectID      uuid.UUID `json:"project_id"`
	TotalAmount    float64   `json:"total_amount"`
	ReleasedAmount float64   `json:"released_amount"`
	PendingAmount  float64   `json:"pending_amount"`
	PaymentCount   int       `json:"payment_count"`
	LastActivity   time.Time `json:"last_activity"`
}
