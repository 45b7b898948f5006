package dto

import (
	"time"

	"github.com/google/uuid"
)

type RetrievalQueryRequest struct {
	QueryText           string     `json:"query_text" validate:"required"`
	PatientId           *uuid.UUID `json:"patient_id,omitempty"`
	SessionId           *uuid.UUID `json:"session_id,omitempty"`
	DateFrom            *time.Time `json:"date_from,omitempty"`
	DateTo              *time.Time `json:"date_to,omitempty"`
	TopK                int        `json:"top_k" validate:"omitempty,min=1,max=50"`
	RerankTopN          int        `json:"rerank_top_n" validate:"omitempty,min=1,max=50"`
	SimilarityThreshold float64    `json:"similarity_threshold" validate:"omitempty,min=0,max=1"`
	RequireFresh        bool       `json:"require_fresh"`
}

type FindSimilarRequest struct {
	NoteId uuid.UUID
	TopK   int `json:"top_k" validate:"omitempty,min=1,max=50"`
}

type SearchBySimilarityRequest struct {
	QueryText string  `json:"query_text" validate:"required"`
	Threshold float64 `json:"threshold" validate:"omitempty,min=0,max=1"`
	TopK      int     `json:"top_k" validate:"omitempty,min=1,max=50"`
}

// RetrievalChunk is query-scoped and never persisted.
type RetrievalChunk struct {
	ChunkId         uuid.UUID              `json:"chunk_id"`
	Content         string                 `json:"content"`
	SimilarityScore float64                `json:"similarity_score"`
	SourceType      string                 `json:"source_type"`
	SourceId        uuid.UUID              `json:"source_id"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

type RetrievalQueryResponse struct {
	Answer           string           `json:"answer"`
	RetrievedChunks  []RetrievalChunk `json:"retrieved_chunks"`
	TotalChunksFound int              `json:"total_chunks_found"`
	Confidence       float64          `json:"confidence"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	// StaleNoteIds lists approved notes in scope whose content changed
	// after their last embedding. Advisory unless require_fresh was set.
	StaleNoteIds []uuid.UUID `json:"stale_note_ids,omitempty"`
}

type SimilarNotesResponse struct {
	Chunks []RetrievalChunk `json:"chunks"`
}
