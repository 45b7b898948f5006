package dto

import (
	"time"

	"github.com/google/uuid"
)

// PipelineStage names the coarse position of a document in the note pipeline.
type PipelineStage string

const (
	StageUploading          PipelineStage = "UPLOADING"
	StageExtracting         PipelineStage = "EXTRACTING"
	StageReadyForGeneration PipelineStage = "READY_FOR_GENERATION"
	StageGenerating         PipelineStage = "GENERATING"
	StageReview             PipelineStage = "REVIEW"
	StageEmbedding          PipelineStage = "EMBEDDING"
	StageIndexed            PipelineStage = "INDEXED"
)

type PipelineStatusResponse struct {
	DocumentId     uuid.UUID     `json:"document_id"`
	SessionId      uuid.UUID     `json:"session_id"`
	NoteId         *uuid.UUID    `json:"note_id,omitempty"`
	Stage          PipelineStage `json:"stage"`
	ReviewState    string        `json:"review_state,omitempty"`
	StaleEmbedding bool          `json:"stale_embedding"`
	Detail         string        `json:"detail,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type PipelineEvent struct {
	EventType  string                 `json:"event_type"`
	DocumentId *uuid.UUID             `json:"document_id,omitempty"`
	NoteId     *uuid.UUID             `json:"note_id,omitempty"`
	SessionId  *uuid.UUID             `json:"session_id,omitempty"`
	Stage      PipelineStage          `json:"stage,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}
