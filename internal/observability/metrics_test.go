package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreRegisteredOnce(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(Merges().WithLabelValues("confirmed"))
	Merges().WithLabelValues("confirmed").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Merges().WithLabelValues("confirmed")))

	StudentsByTier().WithLabelValues("High Risk").Set(3)
	require.Equal(t, 3.0, testutil.ToFloat64(StudentsByTier().WithLabelValues("High Risk")))
}

func TestMetricsHandlerRefreshesBeforeScrape(t *testing.T) {
	refreshed := 0
	app := fiber.New()
	app.Get("/metrics", MetricsHandler(func(context.Context) {
		refreshed++
		StudentsByTier().WithLabelValues("Medium Risk").Set(7)
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, 1, refreshed)
	require.Contains(t, string(body), `dwatch_students_by_tier{tier="Medium Risk"} 7`)
}
