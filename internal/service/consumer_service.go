package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/entity"
	"clinical-scribe-be/internal/repository/specification"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/pkg/events"
	"clinical-scribe-be/pkg/extraction"
	pktNats "clinical-scribe-be/pkg/nats"
	"clinical-scribe-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the two internal work queues: document extraction
// and note embedding.
type consumerService struct {
	pubSub           *gochannel.GoChannel
	extractTopic     string
	embedTopic       string
	uowFactory       unitofwork.RepositoryFactory
	extractors       *extraction.Registry
	embeddingService IEmbeddingService
	eventPublisher   *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	extractTopic string,
	embedTopic string,
	uowFactory unitofwork.RepositoryFactory,
	extractors *extraction.Registry,
	embeddingService IEmbeddingService,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:           pubSub,
		extractTopic:     extractTopic,
		embedTopic:       embedTopic,
		uowFactory:       uowFactory,
		extractors:       extractors,
		embeddingService: embeddingService,
		eventPublisher:   eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	extractMessages, err := cs.pubSub.Subscribe(ctx, cs.extractTopic)
	if err != nil {
		return err
	}
	embedMessages, err := cs.pubSub.Subscribe(ctx, cs.embedTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range extractMessages {
			cs.processExtractMessage(ctx, msg)
		}
	}()
	go func() {
		for msg := range embedMessages {
			cs.processEmbedMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processExtractMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishExtractDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal extract message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		log.Printf("[ERROR] Failed to get document %s: %v", payload.DocumentId, err)
		msg.Nack()
		return
	}
	if document == nil {
		log.Printf("[WARN] Document not found: %s", payload.DocumentId)
		msg.Ack() // Deleted in the meantime. Ack.
		return
	}
	if document.UploadStatus != entity.DocumentStatusExtracting {
		msg.Ack() // Already settled, nothing to do.
		return
	}

	data, err := os.ReadFile(document.StoragePath)
	if err != nil {
		log.Printf("[ERROR] Failed to read stored file for document %s: %v", document.Id, err)
		cs.failExtraction(ctx, uow, document, fmt.Sprintf("stored file unreadable: %v", err))
		msg.Ack() // The file will not come back; terminal.
		return
	}

	extractor, lookupErr := cs.extractors.ForMime(document.MimeType)
	if lookupErr != nil {
		cs.failExtraction(ctx, uow, document, lookupErr.Error())
		msg.Ack()
		return
	}

	text, err := extractor.ExtractText(data, document.MimeType)
	if err != nil {
		// Extraction failures are a valid terminal state, reported to the
		// poller, not retried.
		cs.failExtraction(ctx, uow, document, err.Error())
		msg.Ack()
		return
	}

	document.UploadStatus = entity.DocumentStatusExtracted
	document.TextExtracted = true
	document.ExtractedText = text
	document.WordCount = utils.WordCount(text)
	document.ExtractionError = ""

	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		log.Printf("[ERROR] Failed to update document %s: %v", document.Id, err)
		msg.Nack()
		return
	}

	cs.publishEvent(ctx, events.TypeDocumentExtracted, map[string]interface{}{
		"document_id": document.Id,
		"session_id":  document.SessionId,
		"user_id":     document.UserId,
		"word_count":  document.WordCount,
	})

	log.Printf("[INFO] Document extracted: %s (%d words)", document.Id, document.WordCount)
	msg.Ack()
}

func (cs *consumerService) failExtraction(ctx context.Context, uow unitofwork.UnitOfWork, document *entity.Document, reason string) {
	document.UploadStatus = entity.DocumentStatusFailed
	document.TextExtracted = false
	document.ExtractionError = reason
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		log.Printf("[ERROR] Failed to mark document %s as failed: %v", document.Id, err)
	}
}

func (cs *consumerService) processEmbedMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedNoteMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal embed message: %v", err)
		msg.Ack()
		return
	}

	if err := cs.embeddingService.ProcessNote(ctx, payload.NoteId); err != nil {
		log.Printf("[ERROR] Failed to embed note %s: %v", payload.NoteId, err)
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if cs.eventPublisher == nil {
		return
	}
	event := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := cs.eventPublisher.Publish(ctx, event); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", eventType, err)
	}
}
