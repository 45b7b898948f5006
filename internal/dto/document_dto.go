package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	SessionId    uuid.UUID
	FileName     string
	MimeType     string
	Data         []byte
	Description  string
	ExtractText  bool
	GenerateSoap bool
}

// UploadResult may report TextExtracted=false with a human-readable reason.
// That is a valid state (extraction pending or failed), not an error; the
// caller polls GetExtractedContent until extraction settles.
type UploadResult struct {
	DocumentId    uuid.UUID `json:"document_id"`
	TextExtracted bool      `json:"text_extracted"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	WordCount     int       `json:"word_count"`
	Warnings      []string  `json:"warnings"`
}

type ExtractedContentResponse struct {
	Content   string `json:"content"`
	Extracted bool   `json:"extracted"`
	WordCount int    `json:"word_count"`
	Message   string `json:"message,omitempty"`
}

type ShowDocumentResponse struct {
	Id            uuid.UUID  `json:"id"`
	SessionId     uuid.UUID  `json:"session_id"`
	FileName      string     `json:"file_name"`
	FileSize      int64      `json:"file_size"`
	MimeType      string     `json:"mime_type"`
	Description   string     `json:"description,omitempty"`
	UploadStatus  string     `json:"upload_status"`
	TextExtracted bool       `json:"text_extracted"`
	WordCount     int        `json:"word_count"`
	SoapGenerated bool       `json:"soap_generated"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}
