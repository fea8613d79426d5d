package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

type mockLedgerRepo struct {
	mock.Mock
}

func (m *mockLedgerRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func paymentAt(projectID uuid.UUID, amount float64, status string, createdAt time.Time) models.Payment {
	return models.Payment{
		ID:        uuid.New(),
		ProjectID: projectID,
		Amount:    amount,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestAggregate_Empty(t *testing.T) {
	result := Aggregate(nil)
	assert.Empty(t, result)
}

func TestAggregate_GroupsByProject(t *testing.T) {
	projectA := uuid.New()
	projectB := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	result := Aggregate([]models.Payment{
		paymentAt(projectA, 100, models.PaymentStatusReleased, base),
		paymentAt(projectB, 50, models.PaymentStatusPending, base.Add(time.Hour)),
		paymentAt(projectA, 200, models.PaymentStatusHeld, base.Add(2*time.Hour)),
	})

	assert.Len(t, result, 2)

	var a, b models.ProjectAggregate
	for _, agg := range result {
		switch agg.ProjectID {
		case projectA:
			a = agg
		case projectB:
			b = agg
		}
	}

	assert.Equal(t, 300.0, a.TotalAmount)
	assert.Equal(t, 100.0, a.ReleasedAmount)
	assert.Equal(t, 200.0, a.PendingAmount)
	assert.Equal(t, 2, a.PaymentCount)

	assert.Equal(t, 50.0, b.TotalAmount)
	assert.Equal(t, 0.0, b.ReleasedAmount)
	assert.Equal(t, 50.0, b.PendingAmount)
	assert.Equal(t, 1, b.PaymentCount)
}

func TestAggregate_ReleasedPlusPendingEqualsTotal(t *testing.T) {
	projectID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	statuses := []string{
		models.PaymentStatusPending,
		models.PaymentStatusHeld,
		models.PaymentStatusCompleted,
		models.PaymentStatusReleased,
		models.PaymentStatusFailed,
	}
	payments := make([]models.Payment, 0, len(statuses))
	for i, status := range statuses {
		payments = append(payments, paymentAt(projectID, float64(10*(i+1)), status, base.Add(time.Duration(i)*time.Minute)))
	}

	result := Aggregate(payments)
	assert.Len(t, result, 1)
	assert.Equal(t, result[0].TotalAmount, result[0].ReleasedAmount+result[0].PendingAmount)
	assert.Equal(t, 70.0, result[0].ReleasedAmount) // completed + released
}

func TestAggregate_OrderIndependence(t *testing.T) {
	projectA := uuid.New()
	projectB := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	payments := []models.Payment{
		paymentAt(projectA, 100, models.PaymentStatusReleased, base),
		paymentAt(projectB, 40, models.PaymentStatusPending, base.Add(time.Minute)),
		paymentAt(projectA, 60, models.PaymentStatusHeld, base.Add(2*time.Minute)),
		paymentAt(projectB, 10, models.PaymentStatusCompleted, base.Add(3*time.Minute)),
	}

	reversed := make([]models.Payment, len(payments))
	for i, p := range payments {
		reversed[len(payments)-1-i] = p
	}

	forward := Aggregate(payments)
	backward := Aggregate(reversed)

	byID := func(result []models.ProjectAggregate) map[uuid.UUID]models.ProjectAggregate {
		m := make(map[uuid.UUID]models.ProjectAggregate)
		for _, agg := range result {
			m[agg.ProjectID] = agg
		}
		return m
	}

	assert.Equal(t, byID(forward), byID(backward))
}

func TestAggregate_SortsByLastActivityDesc(t *testing.T) {
	older := uuid.New()
	newer := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	result := Aggregate([]models.Payment{
		paymentAt(older, 100, models.PaymentStatusReleased, base),
		paymentAt(newer, 100, models.PaymentStatusReleased, base.Add(time.Hour)),
	})

	assert.Len(t, result, 2)
	assert.Equal(t, newer, result[0].ProjectID)
	assert.Equal(t, older, result[1].ProjectID)
}

func TestAggregate_PaidAtWinsOverCreatedAt(t *testing.T) {
	projectID := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	paid := created.Add(48 * time.Hour)

	p := paymentAt(projectID, 100, models.PaymentStatusReleased, created)
	p.PaidAt = &paid

	result := Aggregate([]models.Payment{p})
	assert.Len(t, result, 1)
	assert.Equal(t, paid, result[0].LastActivity)
}

func TestAggregate_TieKeepsInputOrder(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	same := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	result := Aggregate([]models.Payment{
		paymentAt(first, 10, models.PaymentStatusPending, same),
		paymentAt(second, 20, models.PaymentStatusPending, same),
	})

	assert.Len(t, result, 2)
	assert.Equal(t, first, result[0].ProjectID)
	assert.Equal(t, second, result[1].ProjectID)
}

func TestLedgerService_UserLedger(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	userID := uuid.New()
	projectID := uuid.New()

	repo.On("ListByUser", ctx, userID).Return([]models.Payment{
		paymentAt(projectID, 500, models.PaymentStatusReleased, time.Now()),
	}, nil)

	result, err := svc.UserLedger(ctx, userID)
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, 500.0, result[0].ReleasedAmount)
	repo.AssertExpectations(t)
}

func TestLedgerService_UserLedger_RepoError(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListByUser", ctx, userID).Return(nil, errors.New("db down"))

	result, err := svc.UserLedger(ctx, userID)
	assert.Error(t, err)
	assert.Nil(t, result)
}
