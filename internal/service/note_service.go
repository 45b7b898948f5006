package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/events"
	pktNats "clinical-scribe-be/pkg/nats"
	"clinical-scribe-be/pkg/utils"

	"github.com/google/uuid"
)

type INoteService interface {
	Save(ctx context.Context, userId uuid.UUID, req *dto.SaveNoteRequest) (*dto.ShowNoteResponse, error)
	Approve(ctx context.Context, userId uuid.UUID, req *dto.ApproveNoteRequest) (*dto.ShowNoteResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error)
	ListBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ShowNoteResponse, error)
}

type noteService struct {
	uowFactory     unitofwork.RepositoryFactory
	embedPublisher IPublisherService
	eventPublisher *pktNats.Publisher
}

func NewNoteService(
	uowFactory unitofwork.RepositoryFactory,
	embedPublisher IPublisherService,
	eventPublisher *pktNats.Publisher,
) INoteService {
	return &noteService{
		uowFactory:     uowFactory,
		embedPublisher: embedPublisher,
		eventPublisher: eventPublisher,
	}
}

// Save persists edited section content. Edits never touch approval flags,
// but they change the content fingerprint, which invalidates any existing
// embedding. Re-embedding is queued here as a required side effect.
func (s *noteService) Save(ctx context.Context, userId uuid.UUID, req *dto.SaveNoteRequest) (*dto.ShowNoteResponse, error) {
	if req.Id == uuid.Nil {
		return nil, serverutils.NewPreconditionError("note id is required; the note has not been persisted yet")
	}
	// Save is a full replacement of the note body. A payload with a blank
	// section would erase it, so all four are required.
	if strings.TrimSpace(req.Subjective) == "" || strings.TrimSpace(req.Objective) == "" ||
		strings.TrimSpace(req.Assessment) == "" || strings.TrimSpace(req.Plan) == "" {
		return nil, serverutils.NewValidationError("all four note sections are required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	note, err := s.findOwnedNote(ctx, uow, userId, req.Id)
	if err != nil {
		return nil, err
	}

	note.Subjective = editedSection(note.Subjective, req.Subjective)
	note.Objective = editedSection(note.Objective, req.Objective)
	note.Assessment = editedSection(note.Assessment, req.Assessment)
	note.Plan = editedSection(note.Plan, req.Plan)
	note.ContentFingerprint = note.Fingerprint()

	if err := uow.SoapNoteRepository().Update(ctx, note); err != nil {
		return nil, err
	}

	if err := s.queueReembed(ctx, note.Id); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.TypeNoteSaved, map[string]interface{}{
		"note_id":    note.Id,
		"session_id": note.SessionId,
		"user_id":    note.ProfessionalId,
	})

	return toNoteResponse(note), nil
}

// Approve flips a note to user-approved. The transition is irreversible:
// there is no unapprove, so approved=false is rejected outright. Approval
// changes the fingerprint (approval state is part of the embedded version),
// so re-embedding is queued just like for a content edit.
func (s *noteService) Approve(ctx context.Context, userId uuid.UUID, req *dto.ApproveNoteRequest) (*dto.ShowNoteResponse, error) {
	if req.Id == uuid.Nil {
		return nil, serverutils.NewPreconditionError("note id is required; the note has not been persisted yet")
	}
	if !req.Approved {
		return nil, serverutils.NewValidationError("unapprove is not supported")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CanApprove() {
		return nil, serverutils.NewForbiddenError("user may not approve notes")
	}

	note, err := s.findOwnedNote(ctx, uow, userId, req.Id)
	if err != nil {
		return nil, err
	}

	if note.UserApproved {
		return toNoteResponse(note), nil
	}

	note.UserApproved = true
	note.ContentFingerprint = note.Fingerprint()

	if err := uow.SoapNoteRepository().Update(ctx, note); err != nil {
		return nil, err
	}

	if err := s.queueReembed(ctx, note.Id); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.TypeNoteApproved, map[string]interface{}{
		"note_id":    note.Id,
		"session_id": note.SessionId,
		"user_id":    note.ProfessionalId,
	})

	return toNoteResponse(note), nil
}

func (s *noteService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	note, err := s.findOwnedNote(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	return toNoteResponse(note), nil
}

func (s *noteService) ListBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ShowNoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	notes, err := uow.SoapNoteRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.NoteOwnedByProfessional{ProfessionalID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowNoteResponse, 0, len(notes))
	for _, note := range notes {
		result = append(result, toNoteResponse(note))
	}
	return result, nil
}

func (s *noteService) findOwnedNote(ctx context.Context, uow unitofwork.UnitOfWork, userId, noteId uuid.UUID) (*entity.SoapNote, error) {
	note, err := uow.SoapNoteRepository().FindOne(ctx,
		specification.ByID{ID: noteId},
		specification.NoteOwnedByProfessional{ProfessionalID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, serverutils.NewNotFoundError("note not found")
	}
	return note, nil
}

func (s *noteService) queueReembed(ctx context.Context, noteId uuid.UUID) error {
	msgJson, err := json.Marshal(dto.PublishEmbedNoteMessage{NoteId: noteId})
	if err != nil {
		return err
	}
	return s.embedPublisher.Publish(ctx, msgJson)
}

func (s *noteService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
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

// editedSection replaces content and recomputes the word count. The stored
// confidence is left as-is: it described the generated text and stays as a
// historical hint rather than being zeroed.
func editedSection(current entity.NoteSection, content string) entity.NoteSection {
	if content == current.Content {
		return current
	}
	return entity.NoteSection{
		Content:    content,
		Confidence: current.Confidence,
		WordCount:  utils.WordCount(content),
	}
}

func toNoteResponse(note *entity.SoapNote) *dto.ShowNoteResponse {
	return &dto.ShowNoteResponse{
		Id:             note.Id,
		SessionId:      note.SessionId,
		DocumentId:     note.DocumentId,
		ProfessionalId: note.ProfessionalId,
		SoapNote: dto.SoapNoteBody{
			Subjective: toSectionDto(note.Subjective),
			Objective:  toSectionDto(note.Objective),
			Assessment: toSectionDto(note.Assessment),
			Plan:       toSectionDto(note.Plan),
		},
		Status:             string(note.Status()),
		AiApproved:         note.AiApproved,
		UserApproved:       note.UserApproved,
		RegenerationCount:  note.RegenerationCount,
		ContentFingerprint: note.ContentFingerprint,
		ValidationFeedback: note.ValidationFeedback,
		ContextData:        note.ContextData,
		CreatedAt:          note.CreatedAt,
		UpdatedAt:          note.UpdatedAt,
	}
}
