package dto

import (
	"time"

	"github.com/google/uuid"
)

type EmbedOneRequest struct {
	NoteId       uuid.UUID
	ForceReembed bool `json:"force_reembed"`
}

// EmbedBatchRequest scopes the batch by exactly one filter dimension.
// MaxParallel is enforced by the orchestrator, never merely forwarded.
type EmbedBatchRequest struct {
	NoteIds      []uuid.UUID `json:"note_ids,omitempty"`
	SessionId    *uuid.UUID  `json:"session_id,omitempty"`
	PatientId    *uuid.UUID  `json:"patient_id,omitempty"`
	ForceReembed bool        `json:"force_reembed"`
	BatchSize    int         `json:"batch_size" validate:"omitempty,min=1,max=500"`
	MaxParallel  int         `json:"max_parallel" validate:"omitempty,min=1,max=8"`
}

type FailedNote struct {
	NoteId uuid.UUID `json:"note_id"`
	Reason string    `json:"reason"`
}

// EmbedResult reports per-item outcomes. A batch with some failures is still
// a successful call; the failed subset is listed with reasons.
type EmbedResult struct {
	EmbeddedCount int          `json:"embedded_count"`
	SkippedCount  int          `json:"skipped_count"`
	FailedCount   int          `json:"failed_count"`
	EmbeddedNotes []uuid.UUID  `json:"embedded_notes"`
	FailedNotes   []FailedNote `json:"failed_notes"`
}

type NoteNeedingEmbedding struct {
	NoteId    uuid.UUID  `json:"note_id"`
	SessionId uuid.UUID  `json:"session_id"`
	Reason    string     `json:"reason"`
	UpdatedAt *time.Time `json:"updated_at"`
}
