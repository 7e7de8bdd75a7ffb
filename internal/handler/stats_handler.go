package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/service"
	"github.com/noah-isme/dropout-watch-api/internal/utils"
)

// StatsHandler serves the dashboard aggregates.
type StatsHandler struct {
	service service.StudentService
	logger  zerolog.Logger
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(service service.StudentService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register binds stats routes.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/risk", h.risk)
	router.Get("/analytics", h.analytics)
}

func (h *StatsHandler) risk(c *fiber.Ctx) error {
	stats, err := h.service.RiskStats(requestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to compute risk stats")
	}
	return utils.SendSuccess(c, "risk stats", stats)
}

func (h *StatsHandler) analytics(c *fiber.Ctx) error {
	analytics, err := h.service.Analytics(requestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to compute analytics")
	}
	return utils.SendSuccess(c, "dashboard analytics", analytics)
}
