package middleware

import (
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// HeaderSeedToken authorises the demo reseed tool.
const HeaderSeedToken = "X-Seed-Token"

const accessLogFormat = "${time} | ${status} | ${latency} | ${method} ${path} | ${locals:" + localCorrelationID + "}\n"

// Config customises the middleware registration pipeline.
type Config struct {
	Logger *zerolog.Logger
	// AllowOrigins is the comma separated CORS origin list of the dashboard.
	// Empty allows every origin.
	AllowOrigins string
	// AccessLog receives the plain access log. Nil writes to stdout.
	AccessLog io.Writer
}

// Register installs the pipeline shared by every route: panic recovery,
// correlation ids, request metrics, the access log and CORS.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}
	accessLog := cfg.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}
	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	app.Use(logger.New(logger.Config{Format: accessLogFormat, Output: accessLog}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  strings.Join([]string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization, HeaderCorrelationID, HeaderSeedToken}, ", "),
		ExposeHeaders: strings.Join([]string{HeaderCorrelationID, fiber.HeaderContentDisposition}, ", "),
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPatch, fiber.MethodOptions}, ","),
	}))
}
