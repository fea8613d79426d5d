package service

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// LedgerRepository описывает источник строк платёжной книги.
type LedgerRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

// LedgerService сворачивает плоский список платежей в финансовые сводки
// по проектам.
type LedgerService struct {
	repo LedgerRepository
}

// NewLedgerService создаёт сервис платёжной книги.
func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

// UserLedger возвращает сводки по всем проектам пользователя.
func (s *LedgerService) UserLedger(ctx context.Context, userID uuid.UUID) ([]models.ProjectAggregate, error) {
	payments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return Aggregate(payments), nil
}

// Aggregate — чистая детерминированная свёртка: группирует строки по проекту
// и считает суммы. В released попадают только завершённые и выплаченные
// платежи, всё остальное (held, pending, failed) для отображения считается
// "ещё не выплачено". Итог отсортирован по последней активности по убыванию,
// при равенстве сохраняется порядок входа.
func Aggregate(payments []models.Payment) []models.ProjectAggregate {
	byProject := make(map[uuid.UUID]*models.ProjectAggregate)
	order := make([]uuid.UUID, 0)

	for _, p := range payments {
		agg, ok := byProject[p.ProjectID]
		if !ok {
			agg = &models.ProjectAggregate{ProjectID: p.ProjectID}
			byProject[p.ProjectID] = agg
			order = append(order, p.ProjectID)
		}

		agg.TotalAmount += p.Amount
		if _, paid := models.PaidPaymentStatuses[p.Status]; paid {
			agg.ReleasedAmount += p.Amount
		} else {
			agg.PendingAmount += p.Amount
		}
		agg.PaymentCount++

		activity := p.CreatedAt
		if p.PaidAt != nil {
			activity = *p.PaidAt
		}
		if activity.After(agg.LastActivity) {
			agg.LastActivity = activity
		}
	}

	result := make([]models.ProjectAggregate, 0, len(order))
	for _, id := range order {
		result = append(result, *byProject[id])
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastActivity.After(result[j].LastActivity)
	})

	return result
}
