package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification описывает уведомление пользователя о событии жизненного цикла.
// Идентичность уведомления определяется серверным id; для событий без id
// используется составная сигнатура (тип, заголовок, сообщение, проект, этап).
type Notification struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Type           string     `db:"type" json:"type"`
	Title          string     `db:"title" json:"title"`
	Message        string     `db:"message" json:"message"`
	Priority       string     `db:"priority" json:"priority"`
	ActionRequired bool       `db:"action_required" json:"action_required"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	ProjectID      *uuid.UUID `db:"project_id" json:"project_id,omitempty"`
	MilestoneID    *uuid.UUID `db:"milestone_id" json:"milestone_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
