package models

import (
	"time"

	"github.com/google/uuid"
)

// Milestone описывает оплачиваемый этап работы по проекту.
// Этапы создаются при утверждении плана и никогда не удаляются:
// терминальные статусы сохраняются для аудита.
type Milestone struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ProjectID   uuid.UUID  `db:"project_id" json:"project_id"`
	Title       string     `db:"title" json:"title"`
	Amount      float64    `db:"amount" json:"amount"`
	Status      string     `db:"status" json:"status"`
	DeadlineAt  *time.Time `db:"deadline_at" json:"deadline_at,omitempty"`
	ReviewNotes *string    `db:"review_notes" json:"review_notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Attachments []MilestoneAttachment `json:"attachments,omitempty"`
}

// MilestoneAttachment описывает файл результата работы, прикреплённый к этапу.
type MilestoneAttachment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	MilestoneID uuid.UUID `db:"milestone_id" json:"milestone_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	FilePath    string    `db:"file_path" json:"file_path"`
	MimeType    string    `db:"mime_type" json:"mime_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
