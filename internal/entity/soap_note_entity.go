package entity

import (
	"time"

	"clinical-scribe-be/pkg/fingerprint"

	"github.com/google/uuid"
)

type NoteStatus string

const (
	NoteStatusDraft           NoteStatus = "draft"
	NoteStatusPendingApproval NoteStatus = "pending_approval"
	NoteStatusApproved        NoteStatus = "approved"
)

// NoteSection is one of the four SOAP sections.
type NoteSection struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
}

// SoapNote is the canonical clinical note record.
// Approval flags and content are mutated independently; both mutations
// change the content fingerprint and therefore invalidate embeddings.
type SoapNote struct {
	Id                 uuid.UUID
	SessionId          uuid.UUID
	DocumentId         *uuid.UUID
	ProfessionalId     uuid.UUID
	Subjective         NoteSection
	Objective          NoteSection
	Assessment         NoteSection
	Plan               NoteSection
	AiApproved         bool
	UserApproved       bool
	RegenerationCount  int
	ContentFingerprint string
	ValidationFeedback string
	ContextData        map[string]interface{}
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	DeletedAt          *time.Time
}

// Status derives the approval-machine state from the two flags.
func (n *SoapNote) Status() NoteStatus {
	if n.UserApproved {
		return NoteStatusApproved
	}
	if n.AiApproved {
		return NoteStatusPendingApproval
	}
	return NoteStatusDraft
}

// Fingerprint computes the digest for the note's current version.
func (n *SoapNote) Fingerprint() string {
	return fingerprint.Compute(fingerprint.NoteVersion{
		Subjective:   n.Subjective.Content,
		Objective:    n.Objective.Content,
		Assessment:   n.Assessment.Content,
		Plan:         n.Plan.Content,
		AiApproved:   n.AiApproved,
		UserApproved: n.UserApproved,
	})
}

// PlainText flattens the four sections into embeddable text.
func (n *SoapNote) PlainText() string {
	return "Subjective:\n" + n.Subjective.Content +
		"\n\nObjective:\n" + n.Objective.Content +
		"\n\nAssessment:\n" + n.Assessment.Content +
		"\n\nPlan:\n" + n.Plan.Content
}
