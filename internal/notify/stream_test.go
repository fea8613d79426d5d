package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// fakeRemote — подменная удалённая сторона ленты для тестов.
type fakeRemote struct {
	fetched     []models.Notification
	fetchErr    error
	markReadErr error
	deleteErr   error

	markedRead    []uuid.UUID
	markedAllRead bool
	deleted       []uuid.UUID
}

func (f *fakeRemote) Fetch(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return f.fetched, f.fetchErr
}

func (f *fakeRemote) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markedRead = append(f.markedRead, id)
	return nil
}

func (f *fakeRemote) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	f.markedAllRead = true
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func notification(id uuid.UUID, typ, title string, createdAt time.Time) models.Notification {
	return models.Notification{
		ID:        id,
		Type:      typ,
		Title:     title,
		Message:   title,
		Priority:  models.NotificationPriorityMedium,
		CreatedAt: createdAt,
	}
}

func TestStream_SameEventTwiceProducesOneEntry(t *testing.T) {
	s := NewStream(uuid.New(), &fakeRemote{})
	event := notification(uuid.MustParse("00000000-0000-0000-0000-000000000005"), "milestone_funded", "Этап профинансирован", time.Now())

	assert.True(t, s.OnEvent(event))
	assert.True(t, s.OnEvent(event)) // повторная доставка того же id обновляет запись

	assert.Len(t, s.GetAll(), 1)
}

func TestStream_IDMatchUpdatesButPreservesRead(t *testing.T) {
	remote := &fakeRemote{}
	s := NewStream(uuid.New(), remote)
	id := uuid.New()

	s.OnEvent(notification(id, "milestone_funded", "Этап профинансирован", time.Now()))
	assert.NoError(t, s.MarkRead(context.Background(), id))

	updated := notification(id, "milestone_funded", "Этап профинансирован", time.Now())
	updated.Message = "обновлённый текст"
	s.OnEvent(updated)

	items := s.GetAll()
	assert.Len(t, items, 1)
	assert.Equal(t, "обновлённый текст", items[0].Message)
	assert.True(t, items[0].IsRead, "прочитанность не должна откатываться опоздавшим обновлением")
}

func TestStream_SignatureDedupWithinWindow(t *testing.T) {
	s := NewStream(uuid.New(), &fakeRemote{})
	now := time.Now()

	first := notification(uuid.Nil, "milestone_submitted", "Работа сдана", now)
	duplicate := notification(uuid.Nil, "milestone_submitted", "Работа сдана", now.Add(30*time.Second))

	assert.True(t, s.OnEvent(first))
	assert.False(t, s.OnEvent(duplicate))
	assert.Len(t, s.GetAll(), 1)
}

func TestStream_SignatureOutsideWindowIsDistinct(t *testing.T) {
	s := NewStream(uuid.New(), &fakeRemote{})
	now := time.Now()

	first := notification(uuid.Nil, "milestone_submitted", "Работа сдана", now)
	later := notification(uuid.Nil, "milestone_submitted", "Работа сдана", now.Add(61*time.Second))

	assert.True(t, s.OnEvent(first))
	assert.True(t, s.OnEvent(later))
	assert.Len(t, s.GetAll(), 2)
}

func TestStream_DifferentReferencesNotDeduped(t *testing.T) {
	s := NewStream(uuid.New(), &fakeRemote{})
	now := time.Now()
	projectA := uuid.New()
	projectB := uuid.New()

	first := notification(uuid.Nil, "bid_submitted", "Новая заявка", now)
	first.ProjectID = &projectA
	second := notification(uuid.Nil, "bid_submitted", "Новая заявка", now)
	second.ProjectID = &projectB

	assert.True(t, s.OnEvent(first))
	assert.True(t, s.OnEvent(second))
	assert.Len(t, s.GetAll(), 2)
}

func TestStream_NewEventsPrependNewestFirst(t *testing.T) {
	s := NewStream(uuid.New(), &fakeRemote{})
	now := time.Now()

	older := notification(uuid.New(), "bid_submitted", "Первое", now)
	newer := notification(uuid.New(), "bid_accepted", "Второе", now.Add(time.Minute))

	s.OnEvent(older)
	s.OnEvent(newer)

	items := s.GetAll()
	assert.Equal(t, "Второе", items[0].Title)
	assert.Equal(t, "Первое", items[1].Title)
}

func TestStream_LiveEventArrivesUnread(t *testing.T) {
	s := NewStream(uuid.New(), &fakeRemote{})

	event := notification(uuid.New(), "milestone_funded", "Этап профинансирован", time.Now())
	event.IsRead = true // push не должен приносить прочитанные записи
	s.OnEvent(event)

	assert.Equal(t, 1, s.UnreadCount())
}

func TestStream_LoadMergesWithLiveEvents(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	remote := &fakeRemote{fetched: []models.Notification{
		notification(id, "milestone_funded", "Этап профинансирован", now),
		notification(uuid.New(), "bid_submitted", "Новая заявка", now.Add(-time.Hour)),
	}}
	s := NewStream(uuid.New(), remote)

	// Живое событие пришло раньше, чем завершилась начальная выборка.
	s.OnEvent(notification(id, "milestone_funded", "Этап профинансирован", now))

	assert.NoError(t, s.Load(context.Background()))
	assert.True(t, s.Loaded())
	assert.Len(t, s.GetAll(), 2)
}

func TestStream_LoadPreservesLocalReadState(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	remote := &fakeRemote{fetched: []models.Notification{
		notification(id, "milestone_funded", "Этап профинансирован", now),
	}}
	s := NewStream(uuid.New(), remote)

	s.OnEvent(notification(id, "milestone_funded", "Этап профинансирован", now))
	assert.NoError(t, s.MarkRead(context.Background(), id))

	// Сервер ещё не знает о прочтении, но выборка не откатывает флаг.
	assert.NoError(t, s.Load(context.Background()))
	assert.True(t, s.GetAll()[0].IsRead)
}

func TestStream_MarkReadOptimisticOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{markReadErr: errors.New("network down")}
	s := NewStream(uuid.New(), remote)
	id := uuid.New()

	s.OnEvent(notification(id, "milestone_funded", "Этап профинансирован", time.Now()))

	err := s.MarkRead(context.Background(), id)
	assert.Error(t, err)
	assert.True(t, s.GetAll()[0].IsRead, "локальный флаг не откатывается")
}

func TestStream_MarkAllRead(t *testing.T) {
	remote := &fakeRemote{}
	s := NewStream(uuid.New(), remote)

	s.OnEvent(notification(uuid.New(), "bid_submitted", "Первое", time.Now()))
	s.OnEvent(notification(uuid.New(), "bid_accepted", "Второе", time.Now()))

	assert.NoError(t, s.MarkAllRead(context.Background()))
	assert.Equal(t, 0, s.UnreadCount())
	assert.True(t, remote.markedAllRead)
}

func TestStream_DeleteOnlyAfterRemoteSuccess(t *testing.T) {
	remote := &fakeRemote{deleteErr: errors.New("network down")}
	s := NewStream(uuid.New(), remote)
	id := uuid.New()

	s.OnEvent(notification(id, "bid_submitted", "Новая заявка", time.Now()))

	assert.Error(t, s.Delete(context.Background(), id))
	assert.Len(t, s.GetAll(), 1, "запись не удаляется, пока удалённый вызов не подтверждён")

	remote.deleteErr = nil
	assert.NoError(t, s.Delete(context.Background(), id))
	assert.Len(t, s.GetAll(), 0)
}

func TestCenter_RoutesPerUser(t *testing.T) {
	remote := &fakeRemote{}
	c := NewCenter(remote)

	alice := uuid.New()
	bob := uuid.New()

	c.OnEvent(alice, notification(uuid.New(), "bid_submitted", "Заявка", time.Now()))

	aliceList, err := c.List(context.Background(), alice)
	assert.NoError(t, err)
	assert.Len(t, aliceList, 1)

	bobList, err := c.List(context.Background(), bob)
	assert.NoError(t, err)
	assert.Len(t, bobList, 0)
}
