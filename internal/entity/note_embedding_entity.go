package entity

import (
	"time"

	"github.com/google/uuid"
)

// NoteEmbedding is one embedded chunk of a note. All chunks of a note share
// the fingerprint of the note version they were computed from; a mismatch
// against the note's current fingerprint marks the embedding stale.
type NoteEmbedding struct {
	Id             uuid.UUID
	Document       string
	EmbeddingValue []float32
	NoteId         uuid.UUID
	ChunkIndex     int
	Fingerprint    string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
}
