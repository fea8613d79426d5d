package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/domain/valueobject"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/notify"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

// ProjectRepository описывает взаимодействие сервиса с хранилищем проектов.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) error
}

// ProjectService управляет статусом проекта. Переход в completed закрыт
// проверкой готовности: все этапы приняты и полностью оплачены.
type ProjectService struct {
	projects   ProjectRepository
	completion *CompletionService
	notifier   LifecycleNotifier
	cache      *CacheService
}

// NewProjectService создаёт сервис проектов.
func NewProjectService(projects ProjectRepository, completion *CompletionService, notifier LifecycleNotifier, cache *CacheService) *ProjectService {
	return &ProjectService{
		projects:   projects,
		completion: completion,
		notifier:   notifier,
		cache:      cache,
	}
}

// GetProject возвращает проект участнику.
func (s *ProjectService) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if _, err := participantRole(project, userID); err != nil {
		return nil, err
	}

	return project, nil
}

// CanComplete возвращает вердикт о готовности проекта к завершению.
func (s *ProjectService) CanComplete(ctx context.Context, projectID, userID uuid.UUID) (Eligibility, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return Eligibility{}, err
	}

	if _, err := participantRole(project, userID); err != nil {
		return Eligibility{}, err
	}

	return s.completion.CanComplete(ctx, projectID), nil
}

// UpdateStatus переводит проект в новый статус. Статус проекта меняет
// только клиент; переход in_progress -> completed дополнительно требует
// положительного вердикта проверки готовности.
func (s *ProjectService) UpdateStatus(ctx context.Context, projectID, actorID uuid.UUID, targetStatus string) (*models.Project, error) {
	target, err := valueobject.NewProjectStatus(targetStatus)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if project.ClientID != actorID {
		return nil, apperror.ErrForbidden
	}

	// Идемпотентность повторного идентичного запроса.
	if project.Status == string(target) {
		return project, nil
	}

	current := valueobject.ProjectStatus(project.Status)
	if !current.CanTransitionTo(target) {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition,
			fmt.Sprintf("переход проекта из %s в %s недопустим", current, target))
	}

	if target == valueobject.ProjectStatusCompleted {
		verdict := s.completion.CanComplete(ctx, projectID)
		if !verdict.Eligible {
			return nil, apperror.New(apperror.ErrCodePreconditionNotMet,
				fmt.Sprintf("проект нельзя завершить: %s", verdict.Reason))
		}
	}

	if err := s.projects.UpdateStatus(ctx, projectID, project.Status, string(target)); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			refreshed, refErr := s.projects.GetByID(ctx, projectID)
			if refErr == nil && refreshed.Status == string(target) {
				return refreshed, nil
			}
			return nil, apperror.New(apperror.ErrCodeInvalidTransition,
				fmt.Sprintf("статус проекта изменился, переход в %s недоступен", target))
		}
		return nil, err
	}

	project.Status = string(target)

	if s.cache != nil {
		s.cache.InvalidateProjectCache(projectID)
	}

	if s.notifier != nil && project.FreelancerID != nil && target == valueobject.ProjectStatusCompleted {
		evctx := notify.EventContext{
			ProjectTitle: project.Title,
			ProjectID:    &project.ID,
			Title:        "Проект завершён",
			Message:      fmt.Sprintf("Клиент отметил проект «%s» завершённым.", project.Title),
		}
		if err := s.notifier.Notify(ctx, *project.FreelancerID, notify.RoleFreelancer, notify.EventGeneral, evctx); err != nil {
			logger.Log.Errorf("project service: уведомление о завершении проекта: %v", err)
		}
	}

	return project, nil
}
