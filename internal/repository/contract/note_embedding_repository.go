package contract

import (
	"context"
	"time"

	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk wraps an embedded chunk with its similarity score and the
// provenance needed for deterministic ordering (visit recency).
type ScoredChunk struct {
	Embedding     *entity.NoteEmbedding
	Similarity    float64 // 0.0 to 1.0 (1.0 = identical)
	NoteCreatedAt time.Time
	VisitDate     time.Time
	SessionId     uuid.UUID
	PatientId     uuid.UUID
}

// SimilarityFilter scopes a vector search. Zero values mean "no filter".
type SimilarityFilter struct {
	ProfessionalId *uuid.UUID
	PatientId      *uuid.UUID
	SessionId      *uuid.UUID
	VisitFrom      *time.Time
	VisitTo        *time.Time
	ExcludeNoteId  *uuid.UUID
}

type NoteEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.NoteEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.NoteEmbedding) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByNoteId(ctx context.Context, noteId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteEmbedding, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// HasFreshEmbedding reports whether a live embedding stamped with the
	// given fingerprint exists for the note. Drives embed idempotency.
	HasFreshEmbedding(ctx context.Context, noteId uuid.UUID, fingerprint string) (bool, error)

	// SearchSimilarWithScore returns user-approved chunks with similarity
	// >= threshold, ordered by similarity DESC then recency DESC.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, filter SimilarityFilter) ([]*ScoredChunk, error)
}
