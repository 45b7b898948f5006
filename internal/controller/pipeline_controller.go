package controller

import (
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPipelineController interface {
	RegisterRoutes(r fiber.Router, authMw fiber.Handler)
	Status(ctx *fiber.Ctx) error
	StaleNotes(ctx *fiber.Ctx) error
}

type pipelineController struct {
	pipelineService service.IPipelineService
}

func NewPipelineController(pipelineService service.IPipelineService) IPipelineController {
	return &pipelineController{
		pipelineService: pipelineService,
	}
}

func (c *pipelineController) RegisterRoutes(r fiber.Router, authMw fiber.Handler) {
	h := r.Group("/pipeline/v1")
	h.Use(authMw)
	h.Get("/document/:id/status", c.Status)
	h.Get("/session/:sessionId/stale", c.StaleNotes)
}

func (c *pipelineController) Status(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid document ID"))
	}

	res, err := c.pipelineService.Status(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pipeline status", res))
}

// StaleNotes backs the advisory staleness gate: clients call it before
// high-stakes retrieval and trigger re-embedding when it is non-empty.
func (c *pipelineController) StaleNotes(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session ID"))
	}

	res, err := c.pipelineService.StaleNotes(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Stale notes", res))
}
