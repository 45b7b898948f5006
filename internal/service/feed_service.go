package service

import (
	"context"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/pkg/logger"
	"clinical-scribe-be/internal/websocket"
	"clinical-scribe-be/pkg/events"
	pktNats "clinical-scribe-be/pkg/nats"

	"github.com/google/uuid"
)

// IFeedService bridges the NATS event bus to the websocket hub so connected
// clients see pipeline progress for their own documents in real time.
type IFeedService interface {
	Start()
}

type feedService struct {
	subscriber *pktNats.Subscriber
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewFeedService(subscriber *pktNats.Subscriber, hub *websocket.Hub, log logger.ILogger) IFeedService {
	return &feedService{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

var stageByEventType = map[string]dto.PipelineStage{
	events.TypeDocumentUploaded:  dto.StageExtracting,
	events.TypeDocumentExtracted: dto.StageReadyForGeneration,
	events.TypeNoteGenerated:     dto.StageReview,
	events.TypeNoteSaved:         dto.StageEmbedding,
	events.TypeNoteApproved:      dto.StageEmbedding,
	events.TypeNoteEmbedded:      dto.StageIndexed,
}

func (s *feedService) Start() {
	err := s.subscriber.Subscribe("clinic.>", "pipeline-feed", s.handleEvent)
	if err != nil {
		s.logger.Error("FeedService", "Failed to subscribe to event bus", map[string]interface{}{"error": err.Error()})
	}
}

func (s *feedService) handleEvent(ctx context.Context, event events.Event) error {
	stage, ok := stageByEventType[event.EventType()]
	if !ok {
		// Auth events and future types are not part of the pipeline feed.
		return nil
	}

	payload := event.Payload()
	userId, ok := parseUUIDField(payload, "user_id")
	if !ok {
		s.logger.Warn("FeedService", "Event without user_id, dropping", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	wsEvent := dto.PipelineEvent{
		EventType: event.EventType(),
		Stage:     stage,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if id, ok := parseUUIDField(payload, "document_id"); ok {
		wsEvent.DocumentId = &id
	}
	if id, ok := parseUUIDField(payload, "note_id"); ok {
		wsEvent.NoteId = &id
	}
	if id, ok := parseUUIDField(payload, "session_id"); ok {
		wsEvent.SessionId = &id
	}

	s.hub.Send(userId, wsEvent)
	return nil
}

func parseUUIDField(payload map[string]interface{}, key string) (uuid.UUID, bool) {
	raw, ok := payload[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
