package controller

import (
	"io"

	"clinical-scribe-be/internal/dto"
	"clinical-scribe-be/internal/pkg/serverutils"
	"clinical-scribe-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router, authMw fiber.Handler)
	Upload(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ExtractedContent(ctx *fiber.Ctx) error
	ListBySession(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router, authMw fiber.Handler) {
	h := r.Group("/document/v1")
	h.Use(authMw)
	h.Post("/", c.Upload)
	h.Get("/session/:sessionId", c.ListBySession)
	h.Get("/:id", c.Show)
	h.Get("/:id/content", c.ExtractedContent)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Missing file"))
	}
	sessionId, err := uuid.Parse(ctx.FormValue("session_id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session_id"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	req := dto.UploadDocumentRequest{
		SessionId:    sessionId,
		FileName:     fileHeader.Filename,
		MimeType:     mimeType,
		Data:         data,
		Description:  ctx.FormValue("description"),
		ExtractText:  ctx.FormValue("extract_text") == "true",
		GenerateSoap: ctx.FormValue("generate_soap") == "true",
	}

	res, err := c.documentService.Upload(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document uploaded", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid document ID"))
	}

	res, err := c.documentService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document details", res))
}

// ExtractedContent is the polling endpoint for asynchronous extraction.
func (c *documentController) ExtractedContent(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid document ID"))
	}

	res, err := c.documentService.GetExtractedContent(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Extracted content", res))
}

func (c *documentController) ListBySession(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid session ID"))
	}

	res, err := c.documentService.ListBySession(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session documents", res))
}
