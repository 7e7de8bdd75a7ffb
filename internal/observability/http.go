package observability

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the scrape endpoint in the OpenMetrics format when
// the scraper asks for it. refresh, when set, runs before every scrape so
// gauges that mirror the student store are current.
func MetricsHandler(refresh func(context.Context)) fiber.Handler {
	RegisterMetrics()
	scrape := adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	return func(c *fiber.Ctx) error {
		if refresh != nil {
			refresh(c.UserContext())
		}
		return scrape(c)
	}
}
