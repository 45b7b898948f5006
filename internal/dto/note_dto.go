package dto

import (
	"time"

	"github.com/google/uuid"
)

// SaveNoteRequest is a full replacement of the note body. All four sections
// are required so a partial payload cannot blank the omitted ones.
type SaveNoteRequest struct {
	Id         uuid.UUID
	Subjective string `json:"subjective" validate:"required"`
	Objective  string `json:"objective" validate:"required"`
	Assessment string `json:"assessment" validate:"required"`
	Plan       string `json:"plan" validate:"required"`
}

type ApproveNoteRequest struct {
	Id       uuid.UUID
	Approved bool `json:"approved"`
}

type ShowNoteResponse struct {
	Id                 uuid.UUID              `json:"id"`
	SessionId          uuid.UUID              `json:"session_id"`
	DocumentId         *uuid.UUID             `json:"document_id,omitempty"`
	ProfessionalId     uuid.UUID              `json:"professional_id"`
	SoapNote           SoapNoteBody           `json:"soap_note"`
	Status             string                 `json:"status"`
	AiApproved         bool                   `json:"ai_approved"`
	UserApproved       bool                   `json:"user_approved"`
	RegenerationCount  int                    `json:"regeneration_count"`
	ContentFingerprint string                 `json:"content_fingerprint"`
	ValidationFeedback string                 `json:"validation_feedback,omitempty"`
	ContextData        map[string]interface{} `json:"context_data,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          *time.Time             `json:"updated_at"`
}
