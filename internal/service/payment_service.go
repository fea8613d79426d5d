package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// PaymentRepository описывает взаимодействие сервиса с хранилищем платежей.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListByMilestone(ctx context.Context, milestoneID uuid.UUID) ([]models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error)
}

// PaymentService содержит бизнес-логику работы с платежами.
// Механика платёжного провайдера снаружи: сюда попадает только результат.
type PaymentService struct {
	payments   PaymentRepository
	milestones MilestoneRepository
	projects   MilestoneProjectRepository
}

// NewPaymentService создаёт сервис платежей.
func NewPaymentService(payments PaymentRepository, milestones MilestoneRepository, projects MilestoneProjectRepository) *PaymentService {
	return &PaymentService{
		payments:   payments,
		milestones: milestones,
		projects:   projects,
	}
}

// CreatePayment регистрирует новую попытку оплаты этапа клиентом.
func (s *PaymentService) CreatePayment(ctx context.Context, milestoneID, payerID uuid.UUID, amount float64, method string, transactionID *string) (*models.Payment, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}

	milestone, err := s.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, milestone.ProjectID)
	if err != nil {
		return nil, err
	}

	if project.ClientID != payerID {
		return nil, apperror.ErrForbidden
	}

	payment := &models.Payment{
		MilestoneID:   milestoneID,
		ProjectID:     milestone.ProjectID,
		PayerID:       payerID,
		Amount:        amount,
		Status:        models.PaymentStatusPending,
		Method:        method,
		TransactionID: transactionID,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("payment service: create %w", err)
	}

	return payment, nil
}

// ListMilestonePayments возвращает платежи этапа участнику проекта.
func (s *PaymentService) ListMilestonePayments(ctx context.Context, milestoneID, userID uuid.UUID) ([]models.Payment, error) {
	milestone, err := s.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, milestone.ProjectID)
	if err != nil {
		return nil, err
	}

	if _, err := participantRole(project, userID); err != nil {
		return nil, err
	}

	return s.payments.ListByMilestone(ctx, milestoneID)
}

// ListUserPayments возвращает плоский список платежей пользователя.
func (s *PaymentService) ListUserPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}
