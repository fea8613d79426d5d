package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// Broadcaster — push-канал до подключённых клиентов пользователя.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// Persister сохраняет уведомление и присваивает ему серверный id.
type Persister interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// EventNotificationNew — имя push-события; полезная нагрузка повторяет
// DTO уведомления.
const EventNotificationNew = "notification:new"

// Dispatcher превращает событие жизненного цикла в уведомление получателя:
// синтез текста, сохранение, слияние в ленту и push.
type Dispatcher struct {
	store   Persister
	center  *Center
	channel Broadcaster
	log     *logrus.Logger
}

// NewDispatcher создаёт диспетчер уведомлений.
func NewDispatcher(store Persister, center *Center, channel Broadcaster, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		center:  center,
		channel: channel,
		log:     log,
	}
}

// Notify доставляет одно уведомление указанному получателю.
// Если сохранение не удалось, событие всё равно уходит в ленту и push без
// серверного id: дубликат от последующей выборки отсечёт сигнатурное окно.
func (d *Dispatcher) Notify(ctx context.Context, recipientID uuid.UUID, role Role, event EventType, evctx EventContext) error {
	draft, err := Synthesize(event, role, evctx)
	if err != nil {
		return err
	}

	notification := models.Notification{
		UserID:         recipientID,
		Type:           string(draft.Type),
		Title:          draft.Title,
		Message:        draft.Message,
		Priority:       draft.Priority,
		ActionRequired: draft.ActionRequired,
		ProjectID:      draft.ProjectID,
		MilestoneID:    draft.MilestoneID,
	}

	if err := d.store.Create(ctx, &notification); err != nil {
		d.log.WithFields(logrus.Fields{
			"user_id": recipientID,
			"event":   event,
		}).Errorf("notify: не удалось сохранить уведомление: %v", err)
	}

	if !d.center.OnEvent(recipientID, notification) {
		// Повторная доставка, получатель уже видел это событие.
		return nil
	}

	if d.channel != nil {
		if err := d.channel.BroadcastToUser(recipientID, EventNotificationNew, notification); err != nil {
			d.log.Errorf("notify: push не доставлен пользователю %s: %v", recipientID, err)
		}
	}

	return nil
}
