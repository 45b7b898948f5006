package dto

import "github.com/google/uuid"

// Messages carried over the internal watermill bus.

type PublishExtractDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}

type PublishEmbedNoteMessage struct {
	NoteId uuid.UUID `json:"note_id"`
}
