package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	PatientId uuid.UUID `json:"patient_id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	VisitDate time.Time `json:"visit_date" validate:"required"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowSessionResponse struct {
	Id            uuid.UUID  `json:"id"`
	PatientId     uuid.UUID  `json:"patient_id"`
	Title         string     `json:"title"`
	VisitDate     time.Time  `json:"visit_date"`
	DocumentCount int        `json:"document_count"`
	NoteCount     int        `json:"note_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type UpdateSessionRequest struct {
	Id        uuid.UUID
	Title     string    `json:"title" validate:"required"`
	VisitDate time.Time `json:"visit_date" validate:"required"`
}
