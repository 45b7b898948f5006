package entity

import (
	"time"

	"github.com/google/uuid"
)

// PatientSession is a patient-visit container. The pipeline never mutates it
// beyond document/note count increments.
type PatientSession struct {
	Id             uuid.UUID
	PatientId      uuid.UUID
	ProfessionalId uuid.UUID
	Title          string
	VisitDate      time.Time
	DocumentCount  int
	NoteCount      int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
}
