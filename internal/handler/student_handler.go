package handler

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/service"
	"github.com/noah-isme/dropout-watch-api/internal/utils"
)

// StudentHandler exposes the student listing, detail and metric edit endpoints.
type StudentHandler struct {
	service   service.StudentService
	reports   service.ReportService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(students service.StudentService, reports service.ReportService, validate *validator.Validate, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service:   students,
		reports:   reports,
		validator: validate,
		logger:    logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register binds student routes. The priority route is bound before the
// :id routes so it is not captured as an identifier. Guards run in front of
// the routes that change stored data.
func (h *StudentHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("", h.list)
	router.Get("/priority", h.priority)
	router.Get("/:id", h.get)
	router.Get("/:id/prediction", h.prediction)
	router.Patch("/:id/metrics", guarded(guards, h.updateMetrics)...)
	router.Get("/:id/report", h.report)
	router.Post("/:id/report/archive", guarded(guards, h.archiveReport)...)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	var query dto.StudentListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}
	query.Risk = strings.ToLower(strings.TrimSpace(query.Risk))

	students, err := h.service.List(requestContext(c), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list students")
	}

	return utils.OK(c, students, "students retrieved", fiber.Map{"total": len(students)})
}

func (h *StudentHandler) priority(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	query := dto.PriorityQuery{Limit: limit}
	if err := h.validator.Struct(query); err != nil {
		return sendServiceError(c, h.logger, err, "invalid limit")
	}

	ranked, err := h.service.Priority(requestContext(c), query.Limit)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to rank students")
	}

	return utils.SendSuccess(c, "priority students", ranked)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	student, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to fetch student")
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) prediction(c *fiber.Ctx) error {
	prediction, err := h.service.Prediction(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to build prediction")
	}
	return utils.SendSuccess(c, "prediction generated", prediction)
}

func (h *StudentHandler) updateMetrics(c *fiber.Ctx) error {
	var payload dto.MetricsUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.UpdateMetrics(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update student")
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) report(c *fiber.Ctx) error {
	report, err := h.reports.Generate(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to generate report")
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.Status(fiber.StatusOK).Send(report.Body)
}

func (h *StudentHandler) archiveReport(c *fiber.Ctx) error {
	archived, err := h.reports.Archive(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to archive report")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report archived", archived)
}
