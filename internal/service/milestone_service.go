package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/domain/valueobject"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/notify"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

// MilestoneRepository описывает взаимодействие сервиса с хранилищем этапов.
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *models.Milestone) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string, reviewNotes *string) error
	SubmitWithAttachments(ctx context.Context, id uuid.UUID, fromStatus string, attachments []models.MilestoneAttachment) error
}

// MilestonePaymentRepository описывает платёжные операции, нужные этапам.
type MilestonePaymentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListByMilestone(ctx context.Context, milestoneID uuid.UUID) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ReleaseMilestonePayments(ctx context.Context, milestoneID uuid.UUID) error
}

// MilestoneProjectRepository описывает выборку проекта этапа.
type MilestoneProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// LifecycleNotifier доставляет уведомление о событии жизненного цикла.
type LifecycleNotifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, role notify.Role, event notify.EventType, evctx notify.EventContext) error
}

// MilestoneService реализует машину состояний этапа: допустимые переходы,
// предусловия финансирования и сдачи, и побочные эффекты переходов
// (эскроу, уведомления).
type MilestoneService struct {
	milestones MilestoneRepository
	payments   MilestonePaymentRepository
	projects   MilestoneProjectRepository
	notifier   LifecycleNotifier
	cache      *CacheService
}

// NewMilestoneService создаёт сервис этапов.
func NewMilestoneService(
	milestones MilestoneRepository,
	payments MilestonePaymentRepository,
	projects MilestoneProjectRepository,
	notifier LifecycleNotifier,
	cache *CacheService,
) *MilestoneService {
	return &MilestoneService{
		milestones: milestones,
		payments:   payments,
		projects:   projects,
		notifier:   notifier,
		cache:      cache,
	}
}

// transitionRoles задаёт, какая сторона проекта вправе инициировать переход.
var transitionRoles = map[valueobject.MilestoneStatus]string{
	valueobject.MilestoneStatusFunded:            models.RoleClient,
	valueobject.MilestoneStatusInProgress:        models.RoleFreelancer,
	valueobject.MilestoneStatusSubmitted:         models.RoleFreelancer,
	valueobject.MilestoneStatusApproved:          models.RoleClient,
	valueobject.MilestoneStatusRevisionRequested: models.RoleClient,
	valueobject.MilestoneStatusCompleted:         models.RoleClient,
}

// transitionEvents задаёт событие уведомления для второй стороны.
// Переход in_progress никого не блокирует и уведомления не порождает.
var transitionEvents = map[valueobject.MilestoneStatus]notify.EventType{
	valueobject.MilestoneStatusFunded:            notify.EventMilestoneFunded,
	valueobject.MilestoneStatusSubmitted:         notify.EventMilestoneSubmitted,
	valueobject.MilestoneStatusApproved:          notify.EventMilestoneApproved,
	valueobject.MilestoneStatusRevisionRequested: notify.EventRevisionRequested,
	valueobject.MilestoneStatusCompleted:         notify.EventPaymentReleased,
}

// PlanStep — утверждённый шаг плана, из которого создаётся этап.
type PlanStep struct {
	Title      string
	Amount     float64
	DeadlineAt *time.Time
}

// ApprovePlan создаёт этапы по утверждённым шагам плана. Этапы рождаются
// в статусе pending и дальше живут только через переходы машины состояний.
func (s *MilestoneService) ApprovePlan(ctx context.Context, projectID, actorID uuid.UUID, steps []PlanStep) ([]models.Milestone, error) {
	if len(steps) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "план не содержит шагов")
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	actorRole, err := participantRole(project, actorID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleClient {
		return nil, apperror.ErrForbidden
	}

	created := make([]models.Milestone, 0, len(steps))
	for _, step := range steps {
		if step.Amount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма этапа должна быть положительной")
		}

		milestone := models.Milestone{
			ProjectID:  projectID,
			Title:      step.Title,
			Amount:     step.Amount,
			Status:     models.MilestoneStatusPending,
			DeadlineAt: step.DeadlineAt,
		}
		if err := s.milestones.Create(ctx, &milestone); err != nil {
			return nil, err
		}
		created = append(created, milestone)
	}

	if s.cache != nil {
		s.cache.InvalidateProjectCache(projectID)
	}

	if s.notifier != nil && project.FreelancerID != nil {
		evctx := notify.EventContext{
			ProjectTitle: project.Title,
			ProjectID:    &project.ID,
			Title:        "План утверждён",
			Message:      fmt.Sprintf("Клиент утвердил план по проекту «%s»: %d этапов.", project.Title, len(created)),
		}
		if err := s.notifier.Notify(ctx, *project.FreelancerID, notify.RoleFreelancer, notify.EventGeneral, evctx); err != nil {
			logger.Log.Errorf("milestone service: уведомление об утверждении плана: %v", err)
		}
	}

	return created, nil
}

// ListProjectMilestones возвращает этапы проекта участнику проекта.
func (s *MilestoneService) ListProjectMilestones(ctx context.Context, projectID, userID uuid.UUID) ([]models.Milestone, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if _, err := participantRole(project, userID); err != nil {
		return nil, err
	}

	return s.milestones.ListByProject(ctx, projectID)
}

// Transition переводит этап в целевой статус. Повторный вызов с тем же
// целевым статусом возвращает успех без побочных эффектов — уведомление
// не дублируется.
func (s *MilestoneService) Transition(ctx context.Context, milestoneID, actorID uuid.UUID, targetStatus string, notes *string) (*models.Milestone, error) {
	target, err := valueobject.NewMilestoneStatus(targetStatus)
	if err != nil {
		return nil, err
	}

	milestone, err := s.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, milestone.ProjectID)
	if err != nil {
		return nil, err
	}

	actorRole, err := participantRole(project, actorID)
	if err != nil {
		return nil, err
	}

	// Идемпотентность: этап уже в целевом статусе.
	if milestone.Status == string(target) {
		return milestone, nil
	}

	current := valueobject.MilestoneStatus(milestone.Status)
	if !current.CanTransitionTo(target) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			fmt.Sprintf("переход этапа из %s в %s недопустим", current, target))
	}

	if required, ok := transitionRoles[target]; ok && actorRole != required {
		return nil, apperror.ErrForbidden
	}

	if err := s.checkPrecondition(ctx, milestone, target); err != nil {
		return nil, err
	}

	if err := s.milestones.UpdateStatus(ctx, milestoneID, milestone.Status, string(target), notes); err != nil {
		if errors.Is(err, repository.ErrMilestoneNotFound) {
			// Конкурирующий запрос успел первым: если он вёл в тот же
			// статус, отвечаем идемпотентным успехом.
			refreshed, refErr := s.milestones.GetByID(ctx, milestoneID)
			if refErr == nil && refreshed.Status == string(target) {
				return refreshed, nil
			}
			return nil, apperror.New(apperror.ErrCodeInvalidTransition,
				fmt.Sprintf("статус этапа изменился, переход в %s недоступен", target))
		}
		return nil, err
	}

	milestone.Status = string(target)
	if notes != nil {
		milestone.ReviewNotes = notes
	}

	if err := s.applySideEffects(ctx, project, milestone, target, actorRole, notes); err != nil {
		logger.Log.Errorf("milestone service: побочные эффекты перехода %s: %v", target, err)
	}

	return milestone, nil
}

// ConfirmFunding обрабатывает внешний сигнал подтверждения оплаты:
// удерживает платёж в эскроу и переводит этап pending -> funded.
func (s *MilestoneService) ConfirmFunding(ctx context.Context, milestoneID, actorID, paymentID uuid.UUID) (*models.Milestone, error) {
	milestone, err := s.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, milestone.ProjectID)
	if err != nil {
		return nil, err
	}

	actorRole, err := participantRole(project, actorID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleClient {
		return nil, apperror.ErrForbidden
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.MilestoneID != milestoneID {
		return nil, apperror.New(apperror.ErrCodeValidation, "платёж относится к другому этапу")
	}
	if payment.Status == models.PaymentStatusFailed {
		return nil, apperror.New(apperror.ErrCodePreconditionNotMet, "платёж не прошёл, этап не может быть профинансирован")
	}

	// Эскроу-удержание подтверждённого платежа.
	if payment.Status == models.PaymentStatusPending {
		if err := s.payments.UpdateStatus(ctx, paymentID, models.PaymentStatusHeld); err != nil {
			return nil, err
		}
		payment.Status = models.PaymentStatusHeld
	}

	// Идемпотентность: повторное подтверждение уже профинансированного
	// этапа — успех без побочных эффектов.
	if valueobject.MilestoneStatus(milestone.Status).IsFunded() {
		return milestone, nil
	}

	held, err := s.heldOrPaidSum(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if held < milestone.Amount {
		return nil, apperror.New(apperror.ErrCodePreconditionNotMet,
			fmt.Sprintf("удержано %.2f из %.2f, этап профинансирован не полностью", held, milestone.Amount))
	}

	if err := s.milestones.UpdateStatus(ctx, milestoneID, milestone.Status, models.MilestoneStatusFunded, nil); err != nil {
		if errors.Is(err, repository.ErrMilestoneNotFound) {
			refreshed, refErr := s.milestones.GetByID(ctx, milestoneID)
			if refErr == nil && valueobject.MilestoneStatus(refreshed.Status).IsFunded() {
				return refreshed, nil
			}
		}
		return nil, err
	}

	milestone.Status = models.MilestoneStatusFunded

	if err := s.applySideEffects(ctx, project, milestone, valueobject.MilestoneStatusFunded, models.RoleClient, nil); err != nil {
		logger.Log.Errorf("milestone service: побочные эффекты финансирования: %v", err)
	}

	return milestone, nil
}

// SubmitWork атомарно фиксирует файлы результата и переводит этап в
// submitted одним действием: отдельный вызов смены статуса после загрузки
// не нужен и не допускается.
func (s *MilestoneService) SubmitWork(ctx context.Context, milestoneID, actorID uuid.UUID, attachments []models.MilestoneAttachment) (*models.Milestone, error) {
	if len(attachments) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сдача работы требует хотя бы один файл результата")
	}

	milestone, err := s.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, milestone.ProjectID)
	if err != nil {
		return nil, err
	}

	actorRole, err := participantRole(project, actorID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleFreelancer {
		return nil, apperror.ErrForbidden
	}

	// Идемпотентность повторной сдачи.
	if milestone.Status == models.MilestoneStatusSubmitted {
		return milestone, nil
	}

	current := valueobject.MilestoneStatus(milestone.Status)
	if !current.IsFunded() {
		// Отклоняется до какого-либо сетевого вызова к хранилищу статуса.
		return nil, apperror.New(apperror.ErrCodePreconditionNotMet, "непрофинансированный этап нельзя сдать на проверку")
	}

	switch current {
	case valueobject.MilestoneStatusFunded,
		valueobject.MilestoneStatusInProgress,
		valueobject.MilestoneStatusRevisionRequested:
		// допустимые исходные статусы сдачи
	default:
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			fmt.Sprintf("этап в статусе %s нельзя сдать на проверку", current))
	}

	if err := s.milestones.SubmitWithAttachments(ctx, milestoneID, milestone.Status, attachments); err != nil {
		if errors.Is(err, repository.ErrMilestoneNotFound) {
			refreshed, refErr := s.milestones.GetByID(ctx, milestoneID)
			if refErr == nil && refreshed.Status == models.MilestoneStatusSubmitted {
				return refreshed, nil
			}
		}
		return nil, err
	}

	milestone.Status = models.MilestoneStatusSubmitted
	milestone.Attachments = append(milestone.Attachments, attachments...)

	if err := s.applySideEffects(ctx, project, milestone, valueobject.MilestoneStatusSubmitted, models.RoleFreelancer, nil); err != nil {
		logger.Log.Errorf("milestone service: побочные эффекты сдачи: %v", err)
	}

	return milestone, nil
}

// EscrowView строит производное представление эскроу-транзакций этапа
// по платежам и статусам: отдельной сущности в хранилище нет.
func (s *MilestoneService) EscrowView(ctx context.Context, milestoneID, userID uuid.UUID) ([]models.EscrowTransaction, error) {
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

	payments, err := s.payments.ListByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	view := make([]models.EscrowTransaction, 0, len(payments))
	for _, p := range payments {
		tx := models.EscrowTransaction{
			MilestoneID: milestoneID,
			PaymentID:   p.ID,
			Amount:      p.Amount,
			CreatedAt:   p.CreatedAt,
		}

		switch p.Status {
		case models.PaymentStatusPending:
			tx.Status = models.EscrowStatusPending
		case models.PaymentStatusHeld:
			if project.Status == models.ProjectStatusCancelled {
				tx.Status = models.EscrowStatusRefunded
			} else {
				tx.Status = models.EscrowStatusHeld
			}
		case models.PaymentStatusCompleted, models.PaymentStatusReleased:
			tx.Status = models.EscrowStatusReleased
			tx.ReleasedAt = p.PaidAt
		default:
			// Неудачные платежи эскроу-транзакций не порождают.
			continue
		}

		view = append(view, tx)
	}

	return view, nil
}

// checkPrecondition проверяет предусловия перехода до обращения к хранилищу.
func (s *MilestoneService) checkPrecondition(ctx context.Context, milestone *models.Milestone, target valueobject.MilestoneStatus) error {
	switch target {
	case valueobject.MilestoneStatusFunded:
		held, err := s.heldOrPaidSum(ctx, milestone.ID)
		if err != nil {
			return err
		}
		if held < milestone.Amount {
			return apperror.New(apperror.ErrCodePreconditionNotMet, "финансирование этапа не подтверждено")
		}
	case valueobject.MilestoneStatusSubmitted:
		if !valueobject.MilestoneStatus(milestone.Status).IsFunded() {
			return apperror.New(apperror.ErrCodePreconditionNotMet, "непрофинансированный этап нельзя сдать на проверку")
		}
		if len(milestone.Attachments) == 0 {
			return apperror.New(apperror.ErrCodePreconditionNotMet, "сдача требует зафиксированных файлов результата")
		}
	}
	return nil
}

// heldOrPaidSum возвращает сумму платежей этапа, удержанных или выплаченных.
func (s *MilestoneService) heldOrPaidSum(ctx context.Context, milestoneID uuid.UUID) (float64, error) {
	payments, err := s.payments.ListByMilestone(ctx, milestoneID)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for _, p := range payments {
		switch p.Status {
		case models.PaymentStatusHeld, models.PaymentStatusCompleted, models.PaymentStatusReleased:
			sum += p.Amount
		}
	}
	return sum, nil
}

// applySideEffects выполняет побочные эффекты успешного перехода: сброс
// кэша готовности, освобождение эскроу и ровно одно уведомление второй
// стороне.
func (s *MilestoneService) applySideEffects(ctx context.Context, project *models.Project, milestone *models.Milestone, target valueobject.MilestoneStatus, actorRole string, notes *string) error {
	if s.cache != nil {
		s.cache.InvalidateProjectCache(project.ID)
	}

	if target == valueobject.MilestoneStatusApproved {
		if err := s.payments.ReleaseMilestonePayments(ctx, milestone.ID); err != nil {
			return err
		}
	}

	event, ok := transitionEvents[target]
	if !ok || s.notifier == nil {
		return nil
	}

	recipientID, recipientRole, ok := counterparty(project, actorRole)
	if !ok {
		return nil
	}

	evctx := notify.EventContext{
		ProjectTitle:   project.Title,
		MilestoneTitle: milestone.Title,
		Amount:         milestone.Amount,
		ProjectID:      &project.ID,
		MilestoneID:    &milestone.ID,
	}
	if notes != nil {
		evctx.Notes = *notes
	}

	return s.notifier.Notify(ctx, recipientID, notify.Role(recipientRole), event, evctx)
}

// participantRole возвращает роль пользователя в проекте.
func participantRole(project *models.Project, userID uuid.UUID) (string, error) {
	if project.ClientID == userID {
		return models.RoleClient, nil
	}
	if project.FreelancerID != nil && *project.FreelancerID == userID {
		return models.RoleFreelancer, nil
	}
	return "", apperror.ErrForbidden
}

// counterparty возвращает вторую сторону проекта относительно роли актора.
func counterparty(project *models.Project, actorRole string) (uuid.UUID, string, bool) {
	if actorRole == models.RoleClient {
		if project.FreelancerID == nil {
			return uuid.Nil, "", false
		}
		return *project.FreelancerID, models.RoleFreelancer, true
	}
	return project.ClientID, models.RoleClient, true
}
