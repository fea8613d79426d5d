package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// Причины отказа в завершении проекта.
const (
	ReasonNoMilestones       = "no milestones"
	ReasonNotAllApproved     = "not all approved"
	ReasonPaymentsIncomplete = "payments incomplete"
	ReasonServerError        = "server error"
)

// Eligibility — вердикт о готовности проекта к завершению.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// CompletionMilestoneRepository описывает выборку этапов для проверки.
type CompletionMilestoneRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error)
}

// CompletionPaymentRepository описывает выборку платежей этапа.
type CompletionPaymentRepository interface {
	ListByMilestone(ctx context.Context, milestoneID uuid.UUID) ([]models.Payment, error)
}

// CompletionService решает, может ли проект быть отмечен завершённым:
// все этапы приняты и полностью оплачены.
type CompletionService struct {
	milestones CompletionMilestoneRepository
	payments   CompletionPaymentRepository
	cache      *CacheService
	cacheTTL   time.Duration
}

// NewCompletionService создаёт сервис проверки готовности.
// Вердикт кэшируется на ttl — проверка выполняется по требованию
// (открытие меню действия), а не опросом.
func NewCompletionService(milestones CompletionMilestoneRepository, payments CompletionPaymentRepository, cache *CacheService, ttl time.Duration) *CompletionService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CompletionService{
		milestones: milestones,
		payments:   payments,
		cache:      cache,
		cacheTTL:   ttl,
	}
}

// CanComplete возвращает вердикт по проекту. Любая ошибка выборки даёт
// отказ с причиной "server error": проверка никогда не предполагает
// готовность оптимистично.
func (s *CompletionService) CanComplete(ctx context.Context, projectID uuid.UUID) Eligibility {
	if s.cache != nil {
		if cached, ok := s.cache.Get(EligibilityCacheKey(projectID)); ok {
			if verdict, ok := cached.(Eligibility); ok {
				return verdict
			}
		}
	}

	verdict := s.compute(ctx, projectID)

	if s.cache != nil {
		s.cache.Set(EligibilityCacheKey(projectID), verdict, s.cacheTTL)
	}

	return verdict
}

// Invalidate сбрасывает закэшированный вердикт проекта.
func (s *CompletionService) Invalidate(projectID uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(EligibilityCacheKey(projectID))
	}
}

func (s *CompletionService) compute(ctx context.Context, projectID uuid.UUID) Eligibility {
	milestones, err := s.milestones.ListByProject(ctx, projectID)
	if err != nil {
		return Eligibility{Eligible: false, Reason: ReasonServerError}
	}

	if len(milestones) == 0 {
		return Eligibility{Eligible: false, Reason: ReasonNoMilestones}
	}

	for _, m := range milestones {
		if m.Status != models.MilestoneStatusApproved && m.Status != models.MilestoneStatusCompleted {
			return Eligibility{Eligible: false, Reason: ReasonNotAllApproved}
		}
	}

	// Запросы платежей по этапам уходят параллельно, но вердикт
	// публикуется только когда все они завершились: частичный результат
	// никогда не выдаётся как финальный ответ.
	var mu sync.Mutex
	underpaid := false

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range milestones {
		milestone := m
		g.Go(func() error {
			payments, err := s.payments.ListByMilestone(gctx, milestone.ID)
			if err != nil {
				return err
			}

			paid := 0.0
			for _, p := range payments {
				if _, ok := models.PaidPaymentStatuses[p.Status]; ok {
					paid += p.Amount
				}
			}

			if paid < milestone.Amount {
				mu.Lock()
				underpaid = true
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Eligibility{Eligible: false, Reason: ReasonServerError}
	}

	if underpaid {
		return Eligibility{Eligible: false, Reason: ReasonPaymentsIncomplete}
	}

	return Eligibility{Eligible: true}
}
