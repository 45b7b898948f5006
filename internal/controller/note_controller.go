package controller

import (
	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type INoteController interface {
	RegisterRoutes(r fiber.Router, authMw fiber.Handler)
	Generate(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
	Approve(ctx *fiber.Ctx) error
	ListBySession(ctx *fiber.Ctx) error
}

type noteController struct {
	noteService       service.INoteService
	generationService service.IGenerationService
}

func NewNoteController(noteService service.INoteService, generationService service.IGenerationService) INoteController {
	return &noteController{
		noteService:       noteService,
		generationService: generationService,
	}
}

func (c *noteController) RegisterRoutes(r fiber.Router, authMw fiber.Handler) {
	h := r.Group("/note/v1")
	h.Use(authMw)
	h.Post("/generate", c.Generate)
	h.Get("/session/:sessionId", c.ListBySession)
	h.Get("/:id", c.Show)
	h.Put("/:id", c.Save)
	h.Post("/:id/approve", c.Approve)
}

func (c *noteController) Generate(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.GenerateNoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.generationService.Generate(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Note generated", res))
}

func (c *noteController) Show(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid note ID"))
	}

	res, err := c.noteService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Note details", res))
}

func (c *noteController) Save(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid note ID"))
	}

	var req dto.SaveNoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.Id = id

	res, err := c.noteService.Save(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Note saved", res))
}

func (c *noteController) Approve(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid note ID"))
	}

	var req dto.ApproveNoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	req.Id = id

	res, err := c.noteService.Approve(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Note approved", res))
}

func (c *noteController) ListBySession(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session ID"))
	}

	res, err := c.noteService.ListBySession(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session notes", res))
}
