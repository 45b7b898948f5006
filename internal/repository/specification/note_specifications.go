package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByPatientID filters soap_notes through their owning patient session.
type ByPatientID struct {
	PatientID uuid.UUID
}

func (s ByPatientID) Apply(db *gorm.DB) *gorm.DB {
	return db.
		Joins("JOIN patient_sessions ON patient_sessions.id = soap_notes.session_id").
		Where("patient_sessions.patient_id = ?", s.PatientID).
		Where("patient_sessions.deleted_at IS NULL")
}

type NoteOwnedByProfessional struct {
	ProfessionalID uuid.UUID
}

func (s NoteOwnedByProfessional) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("soap_notes.professional_id = ?", s.ProfessionalID)
}

// UserApprovedOnly keeps only clinician-approved notes. This is the gate
// that decides what may enter the retrieval index.
type UserApprovedOnly struct{}

func (s UserApprovedOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("soap_notes.user_approved = ?", true)
}

// NeedsEmbedding keeps notes with no live embedding stamped with the note's
// current content fingerprint. Covers both never-embedded and stale notes.
type NeedsEmbedding struct{}

func (s NeedsEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(`NOT EXISTS (
		SELECT 1 FROM note_embeddings e
		WHERE e.note_id = soap_notes.id
		  AND e.fingerprint = soap_notes.content_fingerprint
		  AND e.deleted_at IS NULL
	)`)
}

// VisitDateBetween filters notes by the visit date of their session.
type VisitDateBetween struct {
	From time.Time
	To   time.Time
}

func (s VisitDateBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.
		Joins("JOIN patient_sessions ON patient_sessions.id = soap_notes.session_id").
		Where("patient_sessions.visit_date BETWEEN ? AND ?", s.From, s.To)
}
