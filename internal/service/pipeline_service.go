package service

import (
	"context"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IPipelineService interface {
	// Status derives the document's position in the pipeline from the
	// document, its latest note and the note's embedding freshness.
	Status(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) (*dto.PipelineStatusResponse, error)

	// StaleNotes is the advisory staleness gate for retrieval flows: callers
	// with high-stakes queries check it and trigger re-embedding first.
	StaleNotes(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.NoteNeedingEmbedding, error)
}

type pipelineService struct {
	uowFactory       unitofwork.RepositoryFactory
	embeddingService IEmbeddingService
}

func NewPipelineService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingService IEmbeddingService,
) IPipelineService {
	return &pipelineService{
		uowFactory:       uowFactory,
		embeddingService: embeddingService,
	}
}

func (s *pipelineService) Status(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) (*dto.PipelineStatusResponse, error) {
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

	status := &dto.PipelineStatusResponse{
		DocumentId: document.Id,
		SessionId:  document.SessionId,
		UpdatedAt:  time.Now(),
	}

	note, err := uow.SoapNoteRepository().FindOne(ctx,
		specification.FilterBy{Field: "document_id", Value: document.Id},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	if note == nil {
		switch document.UploadStatus {
		case entity.DocumentStatusExtracting:
			status.Stage = dto.StageExtracting
		case entity.DocumentStatusFailed:
			status.Stage = dto.StageExtracting
			status.Detail = "extraction failed: " + document.ExtractionError
		default:
			status.Stage = dto.StageReadyForGeneration
		}
		return status, nil
	}

	noteId := note.Id
	status.NoteId = &noteId
	status.ReviewState = string(note.Status())

	if !note.UserApproved {
		status.Stage = dto.StageReview
		return status, nil
	}

	fresh, err := uow.NoteEmbeddingRepository().HasFreshEmbedding(ctx, note.Id, note.ContentFingerprint)
	if err != nil {
		return nil, err
	}
	if fresh {
		status.Stage = dto.StageIndexed
	} else {
		// An edit after approval loops the note back to EMBEDDING until
		// re-embedding succeeds. It never jumps straight to INDEXED.
		status.Stage = dto.StageEmbedding
		status.StaleEmbedding = true
		status.Detail = "embedding out of date with note content"
	}
	return status, nil
}

func (s *pipelineService) StaleNotes(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.NoteNeedingEmbedding, error) {
	sessionFilter := sessionId
	return s.embeddingService.ListPending(ctx, userId, &dto.EmbedBatchRequest{SessionId: &sessionFilter})
}
