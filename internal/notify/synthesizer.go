package notify

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// EventType — закрытый набор событий жизненного цикла, по которым
// строятся уведомления.
type EventType string

const (
	EventMilestoneFunded    EventType = "milestone_funded"
	EventMilestoneSubmitted EventType = "milestone_submitted"
	EventMilestoneApproved  EventType = "milestone_approved"
	EventRevisionRequested  EventType = "revision_requested"
	EventPaymentReleased    EventType = "payment_released"
	EventPlanSubmitted      EventType = "plan_submitted"
	EventBidSubmitted       EventType = "bid_submitted"
	EventBidAccepted        EventType = "bid_accepted"
	EventGeneral            EventType = "general"
)

// Role — роль получателя уведомления. Одно и то же событие даёт разный
// текст в зависимости от того, вызвал ли получатель событие сам или
// принимает его последствия.
type Role string

const (
	RoleClient     Role = models.RoleClient
	RoleFreelancer Role = models.RoleFreelancer
)

// EventContext несёт данные события, подставляемые в шаблон.
type EventContext struct {
	ProjectTitle   string
	MilestoneTitle string
	Amount         float64
	Notes          string
	Title          string // только для EventGeneral
	Message        string // только для EventGeneral
	ProjectID      *uuid.UUID
	MilestoneID    *uuid.UUID
}

// Draft — готовый текст уведомления без идентичности и получателя.
type Draft struct {
	Type           EventType  `json:"type"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Priority       string     `json:"priority"`
	ActionRequired bool       `json:"action_required"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	MilestoneID    *uuid.UUID `json:"milestone_id,omitempty"`
}

type template struct {
	priority       string
	actionRequired bool
	render         func(EventContext) (title, message string)
}

// templates — единая таблица тип события -> роль получателя -> шаблон.
// actionRequired выставлен ровно для событий, которые блокируют прогресс
// другой стороны, пока она не отреагирует.
var templates = map[EventType]map[Role]template{
	EventMilestoneFunded: {
		RoleFreelancer: {priority: models.NotificationPriorityMedium, render: func(c EventContext) (string, string) {
			return "Этап профинансирован",
				fmt.Sprintf("Клиент зарезервировал %.2f за этап «%s». Можно приступать к работе.", c.Amount, c.MilestoneTitle)
		}},
		RoleClient: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "Оплата зарезервирована",
				fmt.Sprintf("Вы зарезервировали %.2f за этап «%s».", c.Amount, c.MilestoneTitle)
		}},
	},
	EventMilestoneSubmitted: {
		RoleClient: {priority: models.NotificationPriorityHigh, actionRequired: true, render: func(c EventContext) (string, string) {
			return "Работа сдана на проверку",
				fmt.Sprintf("Фрилансер сдал этап «%s». Требуется ваша проверка.", c.MilestoneTitle)
		}},
		RoleFreelancer: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "Вы сдали работу",
				fmt.Sprintf("Этап «%s» отправлен клиенту на проверку.", c.MilestoneTitle)
		}},
	},
	EventMilestoneApproved: {
		RoleFreelancer: {priority: models.NotificationPriorityMedium, render: func(c EventContext) (string, string) {
			return "Этап принят",
				fmt.Sprintf("Клиент принял этап «%s».", c.MilestoneTitle)
		}},
		RoleClient: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "Вы приняли этап",
				fmt.Sprintf("Этап «%s» отмечен как принятый.", c.MilestoneTitle)
		}},
	},
	EventRevisionRequested: {
		RoleFreelancer: {priority: models.NotificationPriorityHigh, actionRequired: true, render: func(c EventContext) (string, string) {
			msg := fmt.Sprintf("Клиент запросил правки по этапу «%s».", c.MilestoneTitle)
			if c.Notes != "" {
				msg += " Комментарий: " + c.Notes
			}
			return "Запрошены правки", msg
		}},
		RoleClient: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "Вы запросили правки",
				fmt.Sprintf("Запрос правок по этапу «%s» отправлен фрилансеру.", c.MilestoneTitle)
		}},
	},
	EventPaymentReleased: {
		RoleFreelancer: {priority: models.NotificationPriorityMedium, render: func(c EventContext) (string, string) {
			return "Оплата переведена",
				fmt.Sprintf("Оплата %.2f за этап «%s» переведена вам из эскроу.", c.Amount, c.MilestoneTitle)
		}},
		RoleClient: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "Эскроу закрыт",
				fmt.Sprintf("Оплата %.2f за этап «%s» переведена фрилансеру.", c.Amount, c.MilestoneTitle)
		}},
	},
	EventPlanSubmitted: {
		RoleClient: {priority: models.NotificationPriorityHigh, actionRequired: true, render: func(c EventContext) (string, string) {
			return "План проекта на утверждении",
				fmt.Sprintf("Фрилансер отправил план по проекту «%s». Требуется ваше утверждение.", c.ProjectTitle)
		}},
		RoleFreelancer: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "План отправлен",
				fmt.Sprintf("План по проекту «%s» отправлен клиенту на утверждение.", c.ProjectTitle)
		}},
	},
	EventBidSubmitted: {
		RoleClient: {priority: models.NotificationPriorityMedium, render: func(c EventContext) (string, string) {
			return "Новая заявка",
				fmt.Sprintf("На проект «%s» поступила новая заявка.", c.ProjectTitle)
		}},
		RoleFreelancer: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "Заявка отправлена",
				fmt.Sprintf("Ваша заявка на проект «%s» отправлена клиенту.", c.ProjectTitle)
		}},
	},
	EventBidAccepted: {
		RoleFreelancer: {priority: models.NotificationPriorityHigh, render: func(c EventContext) (string, string) {
			return "Заявка принята",
				fmt.Sprintf("Клиент принял вашу заявку на проект «%s».", c.ProjectTitle)
		}},
		RoleClient: {priority: models.NotificationPriorityLow, render: func(c EventContext) (string, string) {
			return "Вы приняли заявку",
				fmt.Sprintf("Заявка по проекту «%s» принята.", c.ProjectTitle)
		}},
	},
	EventGeneral: {
		RoleClient:     {priority: models.NotificationPriorityLow, render: renderGeneral},
		RoleFreelancer: {priority: models.NotificationPriorityLow, render: renderGeneral},
	},
}

func renderGeneral(c EventContext) (string, string) {
	title := c.Title
	if title == "" {
		title = "Уведомление"
	}
	return title, c.Message
}

// Synthesize строит текст уведомления по типу события и роли получателя.
// Функция чистая: никаких побочных эффектов, одинаковый вход даёт
// одинаковый результат.
func Synthesize(event EventType, role Role, ctx EventContext) (Draft, error) {
	byRole, ok := templates[event]
	if !ok {
		return Draft{}, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный тип события: %s", event))
	}

	tpl, ok := byRole[role]
	if !ok {
		return Draft{}, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестная роль получателя: %s", role))
	}

	title, message := tpl.render(ctx)
	return Draft{
		Type:           event,
		Title:          title,
		Message:        message,
		Priority:       tpl.priority,
		ActionRequired: tpl.actionRequired,
		ProjectID:      ctx.ProjectID,
		MilestoneID:    ctx.MilestoneID,
	}, nil
}
