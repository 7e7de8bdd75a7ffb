package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/dropout-watch-api/internal/config"
	"github.com/noah-isme/dropout-watch-api/internal/handler"
	"github.com/noah-isme/dropout-watch-api/internal/middleware"
)

// Roles allowed to change data when authentication is enabled.
var writerRoles = []string{"mentor", "admin"}

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	StudentHandler      *handler.StudentHandler
	StatsHandler        *handler.StatsHandler
	UploadHandler       *handler.UploadHandler
	MentorHandler       *handler.MentorHandler
	NotificationHandler *handler.NotificationHandler
	SeedHandler         *handler.SeedHandler
	HealthChecks        map[string]handler.Pinger
	JWTMiddleware       fiber.Handler
	MetricsHandler      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	if deps.MetricsHandler != nil {
		app.Get("/metrics", deps.MetricsHandler)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	writers := middleware.RequireRole(cfg.AuthEnabled(), writerRoles...)

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("/students", jwtMiddleware), writers)
	}

	if deps.StatsHandler != nil {
		deps.StatsHandler.Register(api.Group("/stats", jwtMiddleware))
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/uploads", jwtMiddleware, writers, middleware.RateLimit("uploads", 30, time.Minute))
		deps.UploadHandler.Register(uploads)
	}

	if deps.MentorHandler != nil {
		deps.MentorHandler.Register(api.Group("/mentor", jwtMiddleware, writers))
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications, writers)
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/tools/seed"))
	}
}
