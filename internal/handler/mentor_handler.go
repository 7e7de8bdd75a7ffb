package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/middleware"
	"github.com/noah-isme/dropout-watch-api/internal/service"
	"github.com/noah-isme/dropout-watch-api/internal/utils"
)

// MentorHandler exposes intervention and meeting tracking. When a bearer
// token is present the mentor id comes from its claims, otherwise from the
// mentor query parameter.
type MentorHandler struct {
	service service.MentorService
	logger  zerolog.Logger
}

// NewMentorHandler constructs a mentor handler.
func NewMentorHandler(service service.MentorService, logger zerolog.Logger) *MentorHandler {
	return &MentorHandler{
		service: service,
		logger:  logger.With().Str("component", "mentor_handler").Logger(),
	}
}

// Register binds mentor routes.
func (h *MentorHandler) Register(router fiber.Router) {
	router.Get("/summary", h.summary)
	router.Get("/interventions", h.listInterventions)
	router.Post("/interventions", h.createIntervention)
	router.Patch("/interventions/:id/complete", h.completeIntervention)
	router.Get("/meetings", h.listMeetings)
	router.Post("/meetings", h.createMeeting)
	router.Patch("/meetings/:id/status", h.updateMeetingStatus)
}

func mentorFromRequest(c *fiber.Ctx) string {
	if mentorID := middleware.MentorID(c); mentorID != "" {
		return mentorID
	}
	return c.Query("mentor")
}

func (h *MentorHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(requestContext(c), mentorFromRequest(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to build mentor summary")
	}
	return utils.SendSuccess(c, "mentor summary", summary)
}

func (h *MentorHandler) listInterventions(c *fiber.Ctx) error {
	var query dto.MentoringQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	items, err := h.service.ListInterventions(requestContext(c), mentorFromRequest(c), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list interventions")
	}
	return utils.SendSuccess(c, "interventions retrieved", items)
}

func (h *MentorHandler) createIntervention(c *fiber.Ctx) error {
	var payload dto.InterventionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.CreateIntervention(requestContext(c), middleware.MentorID(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to log intervention")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "intervention logged", item)
}

func (h *MentorHandler) completeIntervention(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	item, err := h.service.CompleteIntervention(requestContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to complete intervention")
	}
	return utils.SendSuccess(c, "intervention completed", item)
}

func (h *MentorHandler) listMeetings(c *fiber.Ctx) error {
	var query dto.MentoringQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	items, err := h.service.ListMeetings(requestContext(c), mentorFromRequest(c), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list meetings")
	}
	return utils.SendSuccess(c, "meetings retrieved", items)
}

func (h *MentorHandler) createMeeting(c *fiber.Ctx) error {
	var payload dto.MeetingCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.CreateMeeting(requestContext(c), middleware.MentorID(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to schedule meeting")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "meeting scheduled", item)
}

func (h *MentorHandler) updateMeetingStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.MeetingStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.UpdateMeetingStatus(requestContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update meeting")
	}
	return utils.SendSuccess(c, "meeting updated", item)
}
