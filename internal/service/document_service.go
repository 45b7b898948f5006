package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/events"
	"clinical-scribe-be/pkg/extraction"
	pktNats "clinical-scribe-be/pkg/nats"
	"clinical-scribe-be/pkg/utils"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadResult, error)
	GetExtractedContent(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) (*dto.ExtractedContentResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	ListBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ShowDocumentResponse, error)
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	extractors       *extraction.Registry
	extractPublisher IPublisherService
	eventPublisher   *pktNats.Publisher
	uploadDir        string
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	extractors *extraction.Registry,
	extractPublisher IPublisherService,
	eventPublisher *pktNats.Publisher,
	uploadDir string,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		extractors:       extractors,
		extractPublisher: extractPublisher,
		eventPublisher:   eventPublisher,
		uploadDir:        uploadDir,
	}
}

func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadResult, error) {
	if len(req.Data) == 0 {
		return nil, serverutils.NewPreconditionError("file must not be empty")
	}
	if req.SessionId == uuid.Nil {
		return nil, serverutils.NewPreconditionError("session id is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.PatientSessionRepository().FindOne(ctx,
		specification.ByID{ID: req.SessionId},
		specification.FilterBy{Field: "professional_id", Value: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("session not found")
	}

	document := entity.Document{
		Id:            uuid.New(),
		SessionId:     req.SessionId,
		UserId:        userId,
		FileName:      req.FileName,
		FileSize:      int64(len(req.Data)),
		MimeType:      req.MimeType,
		Description:   req.Description,
		UploadStatus:  entity.DocumentStatusUploaded,
		SoapRequested: req.GenerateSoap,
		CreatedAt:     time.Now(),
	}

	warnings := make([]string, 0)

	if req.ExtractText {
		extractor, lookupErr := s.extractors.ForMime(req.MimeType)
		if lookupErr != nil {
			document.UploadStatus = entity.DocumentStatusFailed
			document.ExtractionError = lookupErr.Error()
			warnings = append(warnings, document.ExtractionError)
		} else if strings.HasPrefix(req.MimeType, "text/") {
			// Plain text is cheap, extract inline instead of queueing.
			text, extractErr := extractor.ExtractText(req.Data, req.MimeType)
			if extractErr != nil {
				document.UploadStatus = entity.DocumentStatusFailed
				document.ExtractionError = extractErr.Error()
				warnings = append(warnings, fmt.Sprintf("text extraction failed: %v", extractErr))
			} else {
				document.UploadStatus = entity.DocumentStatusExtracted
				document.TextExtracted = true
				document.ExtractedText = text
				document.WordCount = utils.WordCount(text)
			}
		} else {
			document.UploadStatus = entity.DocumentStatusExtracting
			warnings = append(warnings, "text extraction in progress, poll extracted content")
		}
	}

	// The async extract worker re-reads the file from disk.
	if document.UploadStatus == entity.DocumentStatusExtracting {
		storagePath := filepath.Join(s.uploadDir, document.Id.String())
		if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(storagePath, req.Data, 0o644); err != nil {
			return nil, err
		}
		document.StoragePath = storagePath
	}

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}
	if err := uow.PatientSessionRepository().IncrementDocumentCount(ctx, session.Id); err != nil {
		return nil, err
	}

	// Queue async extraction only after the row exists.
	if document.UploadStatus == entity.DocumentStatusExtracting {
		msgJson, err := json.Marshal(dto.PublishExtractDocumentMessage{DocumentId: document.Id})
		if err != nil {
			return nil, err
		}
		if err := s.extractPublisher.Publish(ctx, msgJson); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.TypeDocumentUploaded, map[string]interface{}{
		"document_id": document.Id,
		"session_id":  document.SessionId,
		"user_id":     document.UserId,
		"file_name":   document.FileName,
	})

	return &dto.UploadResult{
		DocumentId:    document.Id,
		TextExtracted: document.TextExtracted,
		ExtractedText: document.ExtractedText,
		WordCount:     document.WordCount,
		Warnings:      warnings,
	}, nil
}

// GetExtractedContent is the polling endpoint for async extraction.
// Extracted=false with a message means "not ready yet", not an error.
func (s *documentService) GetExtractedContent(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) (*dto.ExtractedContentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: documentId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, serverutils.NewNotFoundError("document not found")
	}

	switch document.UploadStatus {
	case entity.DocumentStatusExtracted:
		return &dto.ExtractedContentResponse{
			Content:   document.ExtractedText,
			Extracted: true,
			WordCount: document.WordCount,
		}, nil
	case entity.DocumentStatusFailed:
		return &dto.ExtractedContentResponse{
			Extracted: false,
			Message:   fmt.Sprintf("extraction failed: %s", document.ExtractionError),
		}, nil
	default:
		return &dto.ExtractedContentResponse{
			Extracted: false,
			Message:   "extraction not complete yet, try again later",
		}, nil
	}
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, serverutils.NewNotFoundError("document not found")
	}
	return toDocumentResponse(document), nil
}

func (s *documentService) ListBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowDocumentResponse, 0, len(documents))
	for _, document := range documents {
		result = append(result, toDocumentResponse(document))
	}
	return result, nil
}

func (s *documentService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	event := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		fmt.Printf("[WARN] Failed to publish %s event: %v\n", eventType, err)
	}
}

func toDocumentResponse(document *entity.Document) *dto.ShowDocumentResponse {
	return &dto.ShowDocumentResponse{
		Id:            document.Id,
		SessionId:     document.SessionId,
		FileName:      document.FileName,
		FileSize:      document.FileSize,
		MimeType:      document.MimeType,
		Description:   document.Description,
		UploadStatus:  string(document.UploadStatus),
		TextExtracted: document.TextExtracted,
		WordCount:     document.WordCount,
		SoapGenerated: document.SoapGenerated,
		CreatedAt:     document.CreatedAt,
		UpdatedAt:     document.UpdatedAt,
	}
}
