package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/observability"
)

const apiPrefix = "/api/"

// Observability counts every API request and writes one structured log line
// per request. Health checks are counted but not logged.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if !strings.HasPrefix(c.Path(), apiPrefix) {
			return err
		}

		elapsed := time.Since(start)
		route := routeTemplate(c)
		status := responseStatus(c, err)
		recordRequest(c.Method(), route, status, elapsed)

		if strings.HasSuffix(route, "/health") {
			return err
		}

		event := levelFor(logger, status).
			Str("correlation_id", RequestCorrelationID(c)).
			Str("method", c.Method()).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Str("latency_bucket", latencyBucket(elapsed))
		if mentor := MentorID(c); mentor != "" {
			event = event.Str("mentor", mentor)
		}
		event.Msg("request served")
		return err
	}
}

// responseStatus reports the status the client will see. Errors returned by
// handlers are rendered after the middleware chain unwinds.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

func recordRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	observability.APIRequests().WithLabelValues(method, route, code).Inc()
	observability.APILatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
	if status >= fiber.StatusBadRequest {
		observability.APIErrors().WithLabelValues(method, route, code).Inc()
	}
}

func levelFor(logger zerolog.Logger, status int) *zerolog.Event {
	switch {
	case status >= fiber.StatusInternalServerError:
		return logger.Error()
	case status >= fiber.StatusBadRequest:
		return logger.Warn()
	default:
		return logger.Info()
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

func latencyBucket(elapsed time.Duration) string {
	for _, limit := range []time.Duration{25 * time.Millisecond, 100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second} {
		if elapsed <= limit {
			return "<=" + limit.String()
		}
	}
	return ">2s"
}
