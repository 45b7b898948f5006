package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/logger"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/embedding"
	"clinical-scribe-be/pkg/events"
	pktNats "clinical-scribe-be/pkg/nats"
	"clinical-scribe-be/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBatchSize   = 50
	defaultMaxParallel = 4
	maxMaxParallel     = 8

	// ChunkSize 1500 chars with 200 overlap keeps chunks well inside
	// embedding model context limits.
	embedChunkSize    = 1500
	embedChunkOverlap = 200
)

type IEmbeddingService interface {
	EmbedOne(ctx context.Context, userId uuid.UUID, req *dto.EmbedOneRequest) (*dto.EmbedResult, error)
	EmbedBatch(ctx context.Context, userId uuid.UUID, req *dto.EmbedBatchRequest) (*dto.EmbedResult, error)
	EmbedApproved(ctx context.Context, userId uuid.UUID, req *dto.EmbedBatchRequest) (*dto.EmbedResult, error)
	ListPending(ctx context.Context, userId uuid.UUID, req *dto.EmbedBatchRequest) ([]*dto.NoteNeedingEmbedding, error)

	// ProcessNote is the entry point for the background consumer reacting to
	// note-changed messages. It is idempotent: a note whose current version
	// is already embedded is left alone.
	ProcessNote(ctx context.Context, noteId uuid.UUID) error
}

type embeddingService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	eventPublisher    *pktNats.Publisher
	logger            logger.ILogger
}

func NewEmbeddingService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IEmbeddingService {
	return &embeddingService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
		logger:            log,
	}
}

func (s *embeddingService) EmbedOne(ctx context.Context, userId uuid.UUID, req *dto.EmbedOneRequest) (*dto.EmbedResult, error) {
	if req.NoteId == uuid.Nil {
		return nil, serverutils.NewPreconditionError("note id is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.SoapNoteRepository().FindOne(ctx,
		specification.ByID{ID: req.NoteId},
		specification.NoteOwnedByProfessional{ProfessionalID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, serverutils.NewNotFoundError("note not found")
	}

	return s.runBatch(ctx, []*entity.SoapNote{note}, req.ForceReembed, defaultMaxParallel), nil
}

// EmbedBatch embeds every candidate matching the filter. MaxParallel bounds
// in-flight embedding work via a semaphore held by the orchestrator itself;
// it is a hard backpressure limit, not a pass-through request parameter.
func (s *embeddingService) EmbedBatch(ctx context.Context, userId uuid.UUID, req *dto.EmbedBatchRequest) (*dto.EmbedResult, error) {
	notes, err := s.resolveCandidates(ctx, userId, req, false)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, notes, req.ForceReembed, maxParallelOrDefault(req.MaxParallel)), nil
}

// EmbedApproved is EmbedBatch scoped to user-approved notes. Unapproved
// drafts are never candidates here, force or not.
func (s *embeddingService) EmbedApproved(ctx context.Context, userId uuid.UUID, req *dto.EmbedBatchRequest) (*dto.EmbedResult, error) {
	notes, err := s.resolveCandidates(ctx, userId, req, true)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, notes, req.ForceReembed, maxParallelOrDefault(req.MaxParallel)), nil
}

// ListPending reports notes that are approved but not embedded, or whose
// content changed since their last embedding. Read-only, safe to poll.
func (s *embeddingService) ListPending(ctx context.Context, userId uuid.UUID, req *dto.EmbedBatchRequest) ([]*dto.NoteNeedingEmbedding, error) {
	specs := []specification.Specification{
		specification.NoteOwnedByProfessional{ProfessionalID: userId},
		specification.UserApprovedOnly{},
		specification.NeedsEmbedding{},
	}
	if req != nil {
		if len(req.NoteIds) > 0 {
			specs = append(specs, specification.ByIDs{IDs: req.NoteIds})
		}
		if req.SessionId != nil {
			specs = append(specs, specification.BySessionID{SessionID: *req.SessionId})
		}
		if req.PatientId != nil {
			specs = append(specs, specification.ByPatientID{PatientID: *req.PatientId})
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	notes, err := uow.SoapNoteRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.NoteNeedingEmbedding, 0, len(notes))
	for _, note := range notes {
		count, err := uow.NoteEmbeddingRepository().Count(ctx, specification.FilterBy{Field: "note_id", Value: note.Id})
		if err != nil {
			return nil, err
		}
		reason := "content changed since last embedding"
		if count == 0 {
			reason = "never embedded"
		}
		result = append(result, &dto.NoteNeedingEmbedding{
			NoteId:    note.Id,
			SessionId: note.SessionId,
			Reason:    reason,
			UpdatedAt: note.UpdatedAt,
		})
	}
	return result, nil
}

func (s *embeddingService) ProcessNote(ctx context.Context, noteId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.SoapNoteRepository().FindOne(ctx, specification.ByID{ID: noteId})
	if err != nil {
		return err
	}
	if note == nil {
		// Deleted between publish and consume. Nothing to do.
		return nil
	}
	if !note.UserApproved {
		// Only clinician-approved content enters the index. The message will
		// fire again after approval.
		return nil
	}

	_, err = s.embedNote(ctx, note, false)
	return err
}

// resolveCandidates loads the notes matching the request filter. Exactly one
// filter dimension must be set.
func (s *embeddingService) resolveCandidates(ctx context.Context, userId uuid.UUID, req *dto.EmbedBatchRequest, approvedOnly bool) ([]*entity.SoapNote, error) {
	dimensions := 0
	specs := []specification.Specification{
		specification.NoteOwnedByProfessional{ProfessionalID: userId},
	}
	if len(req.NoteIds) > 0 {
		dimensions++
		specs = append(specs, specification.ByIDs{IDs: req.NoteIds})
	}
	if req.SessionId != nil {
		dimensions++
		specs = append(specs, specification.BySessionID{SessionID: *req.SessionId})
	}
	if req.PatientId != nil {
		dimensions++
		specs = append(specs, specification.ByPatientID{PatientID: *req.PatientId})
	}
	if dimensions != 1 {
		return nil, serverutils.NewValidationError("exactly one of note_ids, session_id, patient_id must be provided")
	}
	if approvedOnly {
		specs = append(specs, specification.UserApprovedOnly{})
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	specs = append(specs,
		specification.OrderBy{Field: "created_at", Desc: false},
		specification.Pagination{Limit: batchSize, Offset: 0},
	)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SoapNoteRepository().FindAll(ctx, specs...)
}

type itemOutcome struct {
	noteId   uuid.UUID
	embedded bool
	skipped  bool
	reason   string
}

// runBatch embeds the candidate set under the concurrency bound. Per-item
// failures are collected, never aborting the rest of the batch.
func (s *embeddingService) runBatch(ctx context.Context, notes []*entity.SoapNote, force bool, maxParallel int) *dto.EmbedResult {
	sem := semaphore.NewWeighted(int64(maxParallel))
	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]itemOutcome, 0, len(notes))

	record := func(o itemOutcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}

	for _, note := range notes {
		note := note
		if err := sem.Acquire(ctx, 1); err != nil {
			// Caller abandoned the batch. Work already dispatched finishes;
			// the rest is not started.
			record(itemOutcome{noteId: note.Id, reason: fmt.Sprintf("batch abandoned: %v", err)})
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if !note.UserApproved {
				record(itemOutcome{noteId: note.Id, reason: "note is not user-approved"})
				return
			}

			embedded, err := s.embedNote(ctx, note, force)
			if err != nil {
				record(itemOutcome{noteId: note.Id, reason: err.Error()})
				return
			}
			record(itemOutcome{noteId: note.Id, embedded: embedded, skipped: !embedded})
		}()
	}
	wg.Wait()

	// Deterministic report order regardless of goroutine scheduling.
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].noteId.String() < outcomes[j].noteId.String()
	})

	result := &dto.EmbedResult{
		EmbeddedNotes: make([]uuid.UUID, 0),
		FailedNotes:   make([]dto.FailedNote, 0),
	}
	for _, o := range outcomes {
		switch {
		case o.embedded:
			result.EmbeddedCount++
			result.EmbeddedNotes = append(result.EmbeddedNotes, o.noteId)
		case o.skipped:
			result.SkippedCount++
		default:
			result.FailedCount++
			result.FailedNotes = append(result.FailedNotes, dto.FailedNote{NoteId: o.noteId, Reason: o.reason})
		}
	}
	return result
}

// embedNote embeds a single note version. Returns (false, nil) when the
// current version is already indexed and force is unset.
func (s *embeddingService) embedNote(ctx context.Context, note *entity.SoapNote, force bool) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	current := note.Fingerprint()
	if !force {
		fresh, err := uow.NoteEmbeddingRepository().HasFreshEmbedding(ctx, note.Id, current)
		if err != nil {
			return false, err
		}
		if fresh {
			return false, nil
		}
	}

	chunks := utils.SplitText(note.PlainText(), embedChunkSize, embedChunkOverlap)

	newEmbeddings := make([]*entity.NoteEmbedding, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := s.embeddingProvider.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return false, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		newEmbeddings = append(newEmbeddings, &entity.NoteEmbedding{
			Id:             uuid.New(),
			Document:       chunk,
			EmbeddingValue: res.Embedding.Values,
			NoteId:         note.Id,
			ChunkIndex:     i,
			Fingerprint:    current,
			CreatedAt:      time.Now(),
		})
	}

	// Swap old chunks for new atomically so retrieval never sees a half
	// replaced note.
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	if err := uow.NoteEmbeddingRepository().DeleteByNoteId(ctx, note.Id); err != nil {
		return false, err
	}
	if len(newEmbeddings) > 0 {
		if err := uow.NoteEmbeddingRepository().CreateBulk(ctx, newEmbeddings); err != nil {
			return false, err
		}
	}
	if err := uow.Commit(); err != nil {
		return false, err
	}

	s.logger.Info("embedding", "note embedded", map[string]interface{}{
		"note_id":     note.Id,
		"chunks":      len(newEmbeddings),
		"fingerprint": current,
	})

	if s.eventPublisher != nil {
		event := events.BaseEvent{
			Type: events.TypeNoteEmbedded,
			Data: map[string]interface{}{
				"note_id":    note.Id,
				"session_id": note.SessionId,
				"user_id":    note.ProfessionalId,
				"chunks":     len(newEmbeddings),
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			fmt.Printf("[WARN] Failed to publish %s event: %v\n", events.TypeNoteEmbedded, err)
		}
	}

	return true, nil
}

func maxParallelOrDefault(requested int) int {
	if requested <= 0 {
		return defaultMaxParallel
	}
	if requested > maxMaxParallel {
		return maxMaxParallel
	}
	return requested
}
