package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentUploadStatus string

const (
	DocumentStatusUploaded   DocumentUploadStatus = "uploaded"
	DocumentStatusExtracting DocumentUploadStatus = "extracting"
	DocumentStatusExtracted  DocumentUploadStatus = "extracted"
	DocumentStatusFailed     DocumentUploadStatus = "failed"
)

// Document is an uploaded source file for note generation.
// The pipeline mutates it on extraction completion; deletion is an external
// CRUD operation and never happens here.
type Document struct {
	Id              uuid.UUID
	SessionId       uuid.UUID
	UserId          uuid.UUID
	FileName        string
	FileSize        int64
	MimeType        string
	Description     string
	StoragePath     string
	UploadStatus    DocumentUploadStatus
	TextExtracted   bool
	ExtractedText   string
	WordCount       int
	ExtractionError string
	SoapRequested   bool
	SoapGenerated   bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	DeletedAt       *time.Time
}
