package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/service"
	"github.com/noah-isme/dropout-watch-api/internal/utils"
)

// UploadHandler drives the attendance/marks/fees upload flow.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Get("/templates/:kind", h.template)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/sources/:kind", h.loadSource)
	router.Post("/:id/preview", h.preview)
	router.Post("/:id/confirm", h.confirm)
}

func (h *UploadHandler) create(c *fiber.Ctx) error {
	session := h.service.CreateSession(requestContext(c))
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "upload session created", session)
}

func (h *UploadHandler) get(c *fiber.Ctx) error {
	session, err := h.service.GetSession(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load upload session")
	}
	return utils.SendSuccess(c, "upload session", session)
}

func (h *UploadHandler) loadSource(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrUploadFileRequired.Error())
	}

	result, err := h.service.LoadSource(requestContext(c), c.Params("id"), c.Params("kind"), file)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load source")
	}

	message := "source loaded"
	if len(result.Source.MissingColumns) > 0 {
		message = "source loaded with missing columns"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *UploadHandler) preview(c *fiber.Ctx) error {
	preview, err := h.service.Preview(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to build preview")
	}
	return utils.SendSuccess(c, "preview generated", preview)
}

func (h *UploadHandler) confirm(c *fiber.Ctx) error {
	var payload dto.ConfirmUploadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	result, err := h.service.Confirm(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to store upload")
	}
	return utils.SendSuccess(c, "upload confirmed", result)
}

func (h *UploadHandler) template(c *fiber.Ctx) error {
	name, body, err := h.service.Template(c.Params("kind"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to render template")
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Status(fiber.StatusOK).Send(body)
}
