package controller

import (
	"strconv"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRetrievalController interface {
	RegisterRoutes(r fiber.Router, authMw fiber.Handler)
	Query(ctx *fiber.Ctx) error
	FindSimilar(ctx *fiber.Ctx) error
	SearchBySimilarity(ctx *fiber.Ctx) error
}

type retrievalController struct {
	retrievalService service.IRetrievalService
}

func NewRetrievalController(retrievalService service.IRetrievalService) IRetrievalController {
	return &retrievalController{
		retrievalService: retrievalService,
	}
}

func (c *retrievalController) RegisterRoutes(r fiber.Router, authMw fiber.Handler) {
	h := r.Group("/retrieval/v1")
	h.Use(authMw)
	h.Post("/query", c.Query)
	h.Post("/search", c.SearchBySimilarity)
	h.Get("/similar/:noteId", c.FindSimilar)
}

func (c *retrievalController) Query(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.RetrievalQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.retrievalService.Query(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Retrieval result", res))
}

func (c *retrievalController) FindSimilar(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	noteId, err := uuid.Parse(ctx.Params("noteId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid note ID"))
	}

	topK, _ := strconv.Atoi(ctx.Query("top_k"))
	req := dto.FindSimilarRequest{NoteId: noteId, TopK: topK}

	res, err := c.retrievalService.FindSimilar(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Similar notes", res))
}

func (c *retrievalController) SearchBySimilarity(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.SearchBySimilarityRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.retrievalService.SearchBySimilarity(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Similarity search result", res))
}
