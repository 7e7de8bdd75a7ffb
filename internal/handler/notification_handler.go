package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/middleware"
	"github.com/noah-isme/dropout-watch-api/internal/service"
	"github.com/noah-isme/dropout-watch-api/internal/utils"
)

const localFeedMentor = "feed_mentor"

// NotificationHandler exposes derived alerts, simulated sends and the live feed.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the notification routes. Guards run in front of send and
// mark-read.
func (h *NotificationHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			mentor := middleware.MentorID(c)
			if mentor == "" {
				mentor = strings.TrimSpace(c.Query("mentor"))
			}
			c.Locals(localFeedMentor, mentor)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.feed))
	router.Get("", h.list)
	router.Post("/send", guarded(guards, h.send)...)
	router.Patch("/:id/read", guarded(guards, h.markRead)...)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	var query dto.NotificationQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	items, err := h.service.List(requestContext(c), query)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list notifications")
	}
	return utils.OK(c, items, "notifications", fiber.Map{"total": len(items)})
}

func (h *NotificationHandler) send(c *fiber.Ctx) error {
	var payload dto.NotificationSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Send(requestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to send notification")
	}
	return utils.SendSuccess(c, result.Message, result)
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "notification id required")
	}

	item, err := h.service.MarkRead(requestContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update notification")
	}
	return utils.SendSuccess(c, "notification updated", item)
}

func (h *NotificationHandler) feed(conn *websocket.Conn) {
	mentor, _ := conn.Locals(localFeedMentor).(string)
	events, cleanup := h.service.Subscribe(mentor)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client never sends anything meaningful; reading only detects close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info().Str("mentor", mentor).Msg("notification feed connected")
	defer h.logger.Info().Str("mentor", mentor).Msg("notification feed disconnected")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("failed to write notification event")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				h.logger.Debug().Err(err).Msg("failed to ping notification feed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
