package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// dedupWindow — окно, в пределах которого два события без серверного id
// с одинаковой сигнатурой считаются повторной доставкой одного и того же.
const dedupWindow = 60 * time.Second

// RemoteStore — удалённая сторона ленты уведомлений. Лента меняет локальное
// состояние оптимистично (markRead) либо только после подтверждения (delete).
type RemoteStore interface {
	Fetch(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Stream — упорядоченная (новые сверху) лента уведомлений одного пользователя,
// питаемая двумя источниками: начальной выборкой и живым потоком событий.
// Все мутации заменяют срез целиком, чтобы читатель никогда не видел
// наполовину обновлённый список.
type Stream struct {
	mu     sync.RWMutex
	userID uuid.UUID
	remote RemoteStore
	items  []models.Notification
	loaded bool
}

// NewStream создаёт пустую ленту пользователя.
func NewStream(userID uuid.UUID, remote RemoteStore) *Stream {
	return &Stream{userID: userID, remote: remote}
}

// Load выполняет начальную выборку и сливает её с текущим состоянием по тем
// же правилам, что и живые события: прочитанность, выставленная локально,
// не откатывается опоздавшей копией с сервера.
func (s *Stream) Load(ctx context.Context) error {
	fetched, err := s.remote.Fetch(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range fetched {
		s.mergeLocked(n, false)
	}

	// Выборка могла вставить записи поверх более свежих живых событий.
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].CreatedAt.After(s.items[j].CreatedAt)
	})

	s.loaded = true
	return nil
}

// Loaded сообщает, выполнялась ли начальная выборка.
func (s *Stream) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// OnEvent сливает живое событие в ленту. Возвращает false, если событие
// распознано как повторная доставка и подавлено.
func (s *Stream) OnEvent(n models.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(n, true)
}

// mergeLocked применяет правила слияния к одной записи.
// forceUnread выставляется для живых событий: новая запись всегда приходит
// непрочитанной, тогда как выборка несёт серверный флаг.
func (s *Stream) mergeLocked(n models.Notification, forceUnread bool) bool {
	// Правило 1: серверный id совпал — обновляем изменяемые поля,
	// но прочитанность никогда не откатывается.
	if n.ID != uuid.Nil {
		for i := range s.items {
			if s.items[i].ID == n.ID {
				updated := n
				updated.IsRead = s.items[i].IsRead || n.IsRead
				next := make([]models.Notification, len(s.items))
				copy(next, s.items)
				next[i] = updated
				s.items = next
				return true
			}
		}
	} else {
		// Правило 2: без id ищем идентичную сигнатуру в пределах окна —
		// это повторная доставка (пересёкшиеся выборка и push), подавляем.
		for i := range s.items {
			if sameSignature(s.items[i], n) && withinWindow(s.items[i].CreatedAt, n.CreatedAt) {
				return false
			}
		}
	}

	// Правило 3: новая запись добавляется в начало.
	fresh := n
	if forceUnread {
		fresh.IsRead = false
	}
	next := make([]models.Notification, 0, len(s.items)+1)
	next = append(next, fresh)
	next = append(next, s.items...)
	s.items = next
	return true
}

func sameSignature(a, b models.Notification) bool {
	return a.Type == b.Type &&
		a.Title == b.Title &&
		a.Message == b.Message &&
		uuidPtrEqual(a.ProjectID, b.ProjectID) &&
		uuidPtrEqual(a.MilestoneID, b.MilestoneID)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func withinWindow(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= dedupWindow
}

// GetAll возвращает снимок ленты, новые сверху.
func (s *Stream) GetAll() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount возвращает количество непрочитанных записей.
func (s *Stream) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := range s.items {
		if !s.items[i].IsRead {
			count++
		}
	}
	return count
}

// MarkRead оптимистично помечает запись прочитанной: локальный флаг
// переключается сразу, ошибка удалённого вызова не откатывает его —
// расхождение устранит следующая начальная выборка.
func (s *Stream) MarkRead(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	next := make([]models.Notification, len(s.items))
	copy(next, s.items)
	for i := range next {
		if next[i].ID == id {
			next[i].IsRead = true
			break
		}
	}
	s.items = next
	s.mu.Unlock()

	return s.remote.MarkRead(ctx, s.userID, id)
}

// MarkAllRead оптимистично помечает все записи прочитанными.
func (s *Stream) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	next := make([]models.Notification, len(s.items))
	copy(next, s.items)
	for i := range next {
		next[i].IsRead = true
	}
	s.items = next
	s.mu.Unlock()

	return s.remote.MarkAllRead(ctx, s.userID)
}

// Delete удаляет запись: сначала удалённый вызов, локальное состояние
// меняется только после его успеха, иначе запись всплыла бы снова после
// обновления страницы.
func (s *Stream) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.remote.Delete(ctx, s.userID, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Notification, 0, len(s.items))
	for i := range s.items {
		if s.items[i].ID != id {
			next = append(next, s.items[i])
		}
	}
	s.items = next
	return nil
}
