package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// Center — хранилище лент уведомлений по пользователям. Наружу отдаёт
// API ленты (getAll, markRead, markAllRead, delete, onEvent), внутри
// лениво поднимает Stream на пользователя и питает его из RemoteStore.
type Center struct {
	mu      sync.Mutex
	remote  RemoteStore
	streams map[uuid.UUID]*Stream
}

// NewCenter создаёт центр уведомлений.
func NewCenter(remote RemoteStore) *Center {
	return &Center{
		remote:  remote,
		streams: make(map[uuid.UUID]*Stream),
	}
}

func (c *Center) stream(userID uuid.UUID) *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.streams[userID]
	if !ok {
		s = NewStream(userID, c.remote)
		c.streams[userID] = s
	}
	return s
}

// List возвращает ленту пользователя, при первом обращении выполняя
// начальную выборку.
func (c *Center) List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	s := c.stream(userID)
	if !s.Loaded() {
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
	}
	return s.GetAll(), nil
}

// UnreadCount возвращает число непрочитанных уведомлений пользователя.
func (c *Center) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	s := c.stream(userID)
	if !s.Loaded() {
		if err := s.Load(ctx); err != nil {
			return 0, err
		}
	}
	return s.UnreadCount(), nil
}

// OnEvent сливает живое событие в ленту пользователя. false — событие
// подавлено как повторная доставка.
func (c *Center) OnEvent(userID uuid.UUID, n models.Notification) bool {
	return c.stream(userID).OnEvent(n)
}

// MarkRead помечает уведомление прочитанным (локально сразу, затем удалённо).
func (c *Center) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return c.stream(userID).MarkRead(ctx, id)
}

// MarkAllRead помечает все уведомления пользователя прочитанными.
func (c *Center) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return c.stream(userID).MarkAllRead(ctx)
}

// Delete удаляет уведомление после подтверждения удалённой стороной.
func (c *Center) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return c.stream(userID).Delete(ctx, id)
}
