package valueobject

import "github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"

type MilestoneStatus string

const (
	MilestoneStatusPending           MilestoneStatus = "pending"
	MilestoneStatusFunded            MilestoneStatus = "funded"
	MilestoneStatusInProgress        MilestoneStatus = "in_progress"
	MilestoneStatusSubmitted         MilestoneStatus = "submitted"
	MilestoneStatusApproved          MilestoneStatus = "approved"
	MilestoneStatusRevisionRequested MilestoneStatus = "revision_requested"
	MilestoneStatusCompleted         MilestoneStatus = "completed"
)

// milestoneTransitions задаёт граф допустимых переходов этапа.
// funded достижим только после внешнего подтверждения оплаты,
// submitted — только после фиксации файлов результата.
var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestoneStatusPending:           {MilestoneStatusFunded},
	MilestoneStatusFunded:            {MilestoneStatusInProgress},
	MilestoneStatusInProgress:        {MilestoneStatusSubmitted},
	MilestoneStatusSubmitted:         {MilestoneStatusApproved, MilestoneStatusRevisionRequested},
	MilestoneStatusRevisionRequested: {MilestoneStatusSubmitted},
	MilestoneStatusApproved:          {MilestoneStatusCompleted},
	MilestoneStatusCompleted:         {},
}

func (s MilestoneStatus) IsValid() bool {
	_, ok := milestoneTransitions[s]
	return ok
}

// IsTerminal сообщает, является ли статус конечным.
func (s MilestoneStatus) IsTerminal() bool {
	return s == MilestoneStatusCompleted
}

// IsFunded сообщает, прошёл ли этап стадию эскроу-резервирования.
func (s MilestoneStatus) IsFunded() bool {
	switch s {
	case MilestoneStatusFunded, MilestoneStatusInProgress, MilestoneStatusSubmitted,
		MilestoneStatusApproved, MilestoneStatusRevisionRequested, MilestoneStatusCompleted:
		return true
	}
	return false
}

func (s MilestoneStatus) CanTransitionTo(newStatus MilestoneStatus) bool {
	allowed, ok := milestoneTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewMilestoneStatus(status string) (MilestoneStatus, error) {
	s := MilestoneStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус этапа")
	}
	return s, nil
}

type ProjectStatus string

const (
	ProjectStatusOpenForBids       ProjectStatus = "open_for_bids"
	ProjectStatusPendingAcceptance ProjectStatus = "pending_acceptance"
	ProjectStatusInProgress        ProjectStatus = "in_progress"
	ProjectStatusCompleted         ProjectStatus = "completed"
	ProjectStatusCancelled         ProjectStatus = "cancelled"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusOpenForBids, ProjectStatusPendingAcceptance, ProjectStatusInProgress,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость смены статуса проекта.
// Переход в completed дополнительно ограничен проверкой готовности
// (см. CompletionService), здесь проверяется только граф.
func (s ProjectStatus) CanTransitionTo(newStatus ProjectStatus) bool {
	transitions := map[ProjectStatus][]ProjectStatus{
		ProjectStatusOpenForBids:       {ProjectStatusPendingAcceptance, ProjectStatusCancelled},
		ProjectStatusPendingAcceptance: {ProjectStatusInProgress, ProjectStatusCancelled},
		ProjectStatusInProgress:        {ProjectStatusCompleted, ProjectStatusCancelled},
		ProjectStatusCompleted:         {},
		ProjectStatusCancelled:         {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewProjectStatus(status string) (ProjectStatus, error) {
	s := ProjectStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус проекта")
	}
	return s, nil
}
