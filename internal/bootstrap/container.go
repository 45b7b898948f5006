package bootstrap

import (
	"context"
	"log"

	"clinical-scribe-be/internal/config"
	"clinical-scribe-be/internal/controller"
	"clinical-scribe-be/internal/handler"
	"clinical-scribe-be/internal/pkg/logger"
	"clinical-scribe-be/internal/pkg/mailer"
	"clinical-scribe-be/internal/pkg/session"
	"clinical-scribe-be/internal/repository/unitofwork"
	"clinical-scribe-be/internal/service"
	"clinical-scribe-be/internal/websocket"
	"clinical-scribe-be/pkg/embedding"
	"clinical-scribe-be/pkg/extraction"
	"clinical-scribe-be/pkg/llm/factory"

	pktNats "clinical-scribe-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController      controller.IAuthController
	SessionController   controller.ISessionController
	DocumentController  controller.IDocumentController
	NoteController      controller.INoteController
	EmbeddingController controller.IEmbeddingController
	RetrievalController controller.IRetrievalController
	PipelineController  controller.IPipelineController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure the server wires into middleware and routes
	PipelineFeedHandler *handler.PipelineFeedHandler
	WebSocketHub        *websocket.Hub
	Denylist            session.ICredentialDenylist
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.App.ClientURL,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Credential denylist, shared by the auth service and the JWT middleware
	denylist := session.NewCredentialDenylist(rdb, sysLogger)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/pipeline.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Document extraction
	extractors := extraction.NewRegistry()

	// 4. Services
	extractPublisher := service.NewPublisherService(cfg.Topics.ExtractDocument, pubSub)
	embedPublisher := service.NewPublisherService(cfg.Topics.EmbedNote, pubSub)

	authService := service.NewAuthService(uowFactory, emailService, natsPub, denylist, cfg.App.JwtSecret)
	sessionService := service.NewSessionService(uowFactory)
	documentService := service.NewDocumentService(
		uowFactory,
		extractors,
		extractPublisher,
		natsPub,
		cfg.App.UploadDir,
	)
	generationService := service.NewGenerationService(uowFactory, llmProvider, natsPub, sysLogger)
	noteService := service.NewNoteService(uowFactory, embedPublisher, natsPub)
	embeddingService := service.NewEmbeddingService(uowFactory, embeddingProvider, natsPub, sysLogger)
	retrievalService := service.NewRetrievalService(uowFactory, embeddingProvider, llmProvider)
	pipelineService := service.NewPipelineService(uowFactory, embeddingService)

	// Pipeline feed: NATS events fan out to connected websocket clients
	if natsSub != nil {
		feedService := service.NewFeedService(natsSub, wsHub, wsLogger)
		go feedService.Start()
	}

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Topics.ExtractDocument,
		cfg.Topics.EmbedNote,
		uowFactory,
		extractors,
		embeddingService,
		natsPub,
	)

	// 5. Controllers
	return &Container{
		AuthController:      controller.NewAuthController(authService),
		SessionController:   controller.NewSessionController(sessionService),
		DocumentController:  controller.NewDocumentController(documentService),
		NoteController:      controller.NewNoteController(noteService, generationService),
		EmbeddingController: controller.NewEmbeddingController(embeddingService),
		RetrievalController: controller.NewRetrievalController(retrievalService),
		PipelineController:  controller.NewPipelineController(pipelineService),

		ConsumerService: consumerService,

		PipelineFeedHandler: handler.NewPipelineFeedHandler(wsHub, cfg.App.JwtSecret, wsLogger),
		WebSocketHub:        wsHub,
		Denylist:            denylist,
	}
}
