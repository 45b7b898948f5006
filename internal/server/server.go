package server

import (
	"log"

	"clinical-scribe-be/internal/bootstrap"
	"clinical-scribe-be/internal/config"
	"clinical-scribe-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Routes
	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	api := app.Group("/api")

	authMw := serverutils.NewJwtMiddleware(cfg.App.JwtSecret, c.Denylist)

	c.AuthController.RegisterRoutes(api, authMw)
	c.SessionController.RegisterRoutes(api, authMw)
	c.DocumentController.RegisterRoutes(api, authMw)
	c.NoteController.RegisterRoutes(api, authMw)
	c.EmbeddingController.RegisterRoutes(api, authMw)
	c.RetrievalController.RegisterRoutes(api, authMw)
	c.PipelineController.RegisterRoutes(api, authMw)

	// The websocket feed does its own handshake auth (token query param).
	c.PipelineFeedHandler.RegisterRoutes(api)
}
