package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/pkg/logger"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/events"
	"clinical-scribe-be/pkg/llm"
	pktNats "clinical-scribe-be/pkg/nats"
	"clinical-scribe-be/pkg/utils"

	"github.com/google/uuid"
)

const (
	defaultTemperature = 0.1
	defaultMaxLength   = 8000
)

const soapSystemPrompt = `You are a clinical documentation assistant. Given a visit transcript, produce a SOAP note as strict JSON with this shape:
{
  "subjective": {"content": "...", "confidence": 0.0},
  "objective": {"content": "...", "confidence": 0.0},
  "assessment": {"content": "...", "confidence": 0.0},
  "plan": {"content": "...", "confidence": 0.0},
  "ai_approved": false,
  "validation_feedback": "...",
  "entities": {}
}
Confidence is your own certainty in each section, between 0 and 1. Set ai_approved true only if every section is well supported by the transcript. Respond with JSON only, no prose.`

type IGenerationService interface {
	Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateNoteRequest) (*dto.GenerationResult, error)
}

type generationService struct {
	uowFactory     unitofwork.RepositoryFactory
	llmProvider    llm.LLMProvider
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewGenerationService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IGenerationService {
	return &generationService{
		uowFactory:     uowFactory,
		llmProvider:    llmProvider,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

type llmSoapSection struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

type llmSoapResponse struct {
	Subjective         llmSoapSection         `json:"subjective"`
	Objective          llmSoapSection         `json:"objective"`
	Assessment         llmSoapSection         `json:"assessment"`
	Plan               llmSoapSection         `json:"plan"`
	AiApproved         bool                   `json:"ai_approved"`
	ValidationFeedback string                 `json:"validation_feedback"`
	Entities           map[string]interface{} `json:"entities"`
}

// Generate runs one transcript through the model and persists the result.
// Precondition failures are caught locally before any model call, and the
// call is never retried: generation is costly and a silent retry could
// produce duplicate notes.
func (s *generationService) Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateNoteRequest) (*dto.GenerationResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, serverutils.NewPreconditionError("transcript text must not be empty")
	}
	if req.SessionId == uuid.Nil {
		return nil, serverutils.NewPreconditionError("session id is required")
	}
	if req.Temperature < 0 {
		return nil, serverutils.NewPreconditionError("temperature must not be negative")
	}
	if req.MaxLength < 0 {
		return nil, serverutils.NewPreconditionError("max_length must not be negative")
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxLength := req.MaxLength
	if maxLength == 0 {
		maxLength = defaultMaxLength
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

	prompt := text
	if req.EnablePiiMasking {
		prompt = "Mask direct patient identifiers (names, addresses, contact details) in the output.\n\n" + prompt
	}
	if req.PreserveMedicalContext {
		prompt = "Preserve all clinically relevant terminology and measurements verbatim.\n\n" + prompt
	}

	history := []llm.Message{
		{Role: "system", Content: soapSystemPrompt},
		{Role: "user", Content: prompt},
	}

	raw, err := s.llmProvider.Chat(ctx, history,
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(maxLength),
	)
	if err != nil {
		// Propagated verbatim, never retried here.
		return nil, serverutils.NewUpstreamError("note generation failed", err)
	}

	var parsed llmSoapResponse
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &parsed); err != nil {
		return nil, serverutils.NewUpstreamError("generation service returned malformed note", err)
	}

	regenerationCount := 0
	if req.DocumentId != nil {
		count, err := uow.SoapNoteRepository().Count(ctx,
			specification.FilterBy{Field: "document_id", Value: *req.DocumentId},
		)
		if err != nil {
			return nil, err
		}
		regenerationCount = int(count)
	}

	note := entity.SoapNote{
		Id:                 uuid.New(),
		SessionId:          session.Id,
		DocumentId:         req.DocumentId,
		ProfessionalId:     userId,
		Subjective:         toNoteSection(parsed.Subjective),
		Objective:          toNoteSection(parsed.Objective),
		Assessment:         toNoteSection(parsed.Assessment),
		Plan:               toNoteSection(parsed.Plan),
		AiApproved:         parsed.AiApproved,
		UserApproved:       false,
		RegenerationCount:  regenerationCount,
		ValidationFeedback: parsed.ValidationFeedback,
		CreatedAt:          time.Now(),
	}
	if req.IncludeContext && len(parsed.Entities) > 0 {
		note.ContextData = parsed.Entities
	}
	note.ContentFingerprint = note.Fingerprint()

	result := &dto.GenerationResult{
		SoapNote: dto.SoapNoteBody{
			Subjective: toSectionDto(note.Subjective),
			Objective:  toSectionDto(note.Objective),
			Assessment: toSectionDto(note.Assessment),
			Plan:       toSectionDto(note.Plan),
		},
		AiApproved:         note.AiApproved,
		RegenerationCount:  note.RegenerationCount,
		ContextData:        note.ContextData,
		ValidationFeedback: note.ValidationFeedback,
		ContentFingerprint: note.ContentFingerprint,
	}

	// Persist. On failure the generated content is still returned, just
	// without a note id, so the caller can see the note but cannot save,
	// approve or embed it.
	if err := s.persistNote(ctx, uow, &note); err != nil {
		s.logger.Error("generation", "failed to persist generated note", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		return result, nil
	}
	noteId := note.Id
	result.NoteId = &noteId

	s.publishEvent(ctx, events.TypeNoteGenerated, map[string]interface{}{
		"note_id":    note.Id,
		"session_id": session.Id,
		"user_id":    note.ProfessionalId,
	})

	return result, nil
}

func (s *generationService) persistNote(ctx context.Context, uow unitofwork.UnitOfWork, note *entity.SoapNote) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.SoapNoteRepository().Create(ctx, note); err != nil {
		return err
	}
	if err := uow.PatientSessionRepository().IncrementNoteCount(ctx, note.SessionId); err != nil {
		return err
	}

	if note.DocumentId != nil {
		document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: *note.DocumentId})
		if err != nil {
			return err
		}
		if document != nil && !document.SoapGenerated {
			document.SoapGenerated = true
			if err := uow.DocumentRepository().Update(ctx, document); err != nil {
				return err
			}
		}
	}

	return uow.Commit()
}

func (s *generationService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
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

func toNoteSection(section llmSoapSection) entity.NoteSection {
	confidence := section.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return entity.NoteSection{
		Content:    section.Content,
		Confidence: confidence,
		WordCount:  utils.WordCount(section.Content),
	}
}

func toSectionDto(section entity.NoteSection) dto.SoapSection {
	return dto.SoapSection{
		Content:    section.Content,
		Confidence: section.Confidence,
		WordCount:  section.WordCount,
	}
}

// stripJSONFence removes a markdown code fence if the model wrapped its
// JSON in one.
func stripJSONFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}
