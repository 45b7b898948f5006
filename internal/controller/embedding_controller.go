package controller

import (
	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IEmbeddingController interface {
	RegisterRoutes(r fiber.Router, authMw fiber.Handler)
	EmbedOne(ctx *fiber.Ctx) error
	EmbedBatch(ctx *fiber.Ctx) error
	EmbedApproved(ctx *fiber.Ctx) error
	ListPending(ctx *fiber.Ctx) error
}

type embeddingController struct {
	embeddingService service.IEmbeddingService
}

func NewEmbeddingController(embeddingService service.IEmbeddingService) IEmbeddingController {
	return &embeddingController{
		embeddingService: embeddingService,
	}
}

func (c *embeddingController) RegisterRoutes(r fiber.Router, authMw fiber.Handler) {
	h := r.Group("/embedding/v1")
	h.Use(authMw)
	h.Post("/note/:id", c.EmbedOne)
	h.Post("/batch", c.EmbedBatch)
	h.Post("/approved", c.EmbedApproved)
	h.Get("/pending", c.ListPending)
}

func (c *embeddingController) EmbedOne(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid note ID"))
	}

	var req dto.EmbedOneRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
		}
	}
	req.NoteId = id

	res, err := c.embeddingService.EmbedOne(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Embedding result", res))
}

func (c *embeddingController) EmbedBatch(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.EmbedBatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.embeddingService.EmbedBatch(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Batch embedding result", res))
}

func (c *embeddingController) EmbedApproved(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.EmbedBatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.embeddingService.EmbedApproved(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Approved embedding result", res))
}

// ListPending is the staleness-detection query: approved notes with no
// up-to-date embedding. Read-only, safe to poll.
func (c *embeddingController) ListPending(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	req := dto.EmbedBatchRequest{}
	if raw := ctx.Query("session_id"); raw != "" {
		sessionId, err := uuid.Parse(raw)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session_id"))
		}
		req.SessionId = &sessionId
	}
	if raw := ctx.Query("patient_id"); raw != "" {
		patientId, err := uuid.Parse(raw)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid patient_id"))
		}
		req.PatientId = &patientId
	}

	res, err := c.embeddingService.ListPending(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Notes needing embedding", res))
}
