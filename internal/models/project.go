package models

import (
	"time"

	"github.com/google/uuid"
)

// Project описывает проект между клиентом и фрилансером.
type Project struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ClientID     uuid.UUID  `db:"client_id" json:"client_id"`
	FreelancerID *uuid.UUID `db:"freelancer_id" json:"freelancer_id,omitempty"`
	Title        string     `db:"title" json:"title"`
	Status       string     `db:"status" json:"status"`
	Budget       *float64   `db:"budget" json:"budget,omitempty"`
	DeadlineAt   *time.Time `db:"deadline_at" json:"deadline_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
