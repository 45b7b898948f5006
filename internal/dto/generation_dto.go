package dto

import "github.com/google/uuid"

type GenerateNoteRequest struct {
	Text                   string     `json:"text" validate:"required"`
	SessionId              uuid.UUID  `json:"session_id" validate:"required"`
	DocumentId             *uuid.UUID `json:"document_id,omitempty"`
	IncludeContext         bool       `json:"include_context"`
	MaxLength              int        `json:"max_length" validate:"omitempty,min=0,max=32000"`
	Temperature            float64    `json:"temperature" validate:"omitempty,min=0,max=2"`
	EnablePiiMasking       bool       `json:"enable_pii_masking"`
	PreserveMedicalContext bool       `json:"preserve_medical_context"`
}

type SoapSection struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
}

type SoapNoteBody struct {
	Subjective SoapSection `json:"subjective"`
	Objective  SoapSection `json:"objective"`
	Assessment SoapSection `json:"assessment"`
	Plan       SoapSection `json:"plan"`
}

// GenerationResult carries NoteId as a pointer: a nil NoteId means the note
// could not be persisted and the caller must disable save/approve actions.
type GenerationResult struct {
	NoteId             *uuid.UUID             `json:"note_id,omitempty"`
	SoapNote           SoapNoteBody           `json:"soap_note"`
	AiApproved         bool                   `json:"ai_approved"`
	RegenerationCount  int                    `json:"regeneration_count"`
	ContextData        map[string]interface{} `json:"context_data,omitempty"`
	ValidationFeedback string                 `json:"validation_feedback,omitempty"`
	ContentFingerprint string                 `json:"content_fingerprint,omitempty"`
}
