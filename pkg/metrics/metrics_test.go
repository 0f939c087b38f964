package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMetrics_MiddlewareCountsRequests(t *testing.T) {
	m := metrics.NewServerMetrics("test")
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", m.Handler())

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Requests.WithLabelValues("/ping", "200")))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "storefront_test_http_requests_total")
}

func TestServerMetrics_ObserveCheckout(t *testing.T) {
	m := metrics.NewServerMetrics("test")
	m.ObserveCheckout(metrics.CheckoutSucceeded)
	m.ObserveCheckout(metrics.CheckoutRejected)
	m.ObserveCheckout(metrics.CheckoutRejected)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Checkouts.WithLabelValues(metrics.CheckoutSucceeded)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Checkouts.WithLabelValues(metrics.CheckoutRejected)))
}
