package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "no") })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204"))
	for _, p := range []string{"/items/1", "/items/2"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204")))

	_, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/boom", "418")))
}

func TestMiddlewareMethodLabelOutlivesRequest(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Post("/carts", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Get("/carts", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	_, err := app.Test(httptest.NewRequest("POST", "/carts", nil))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := app.Test(httptest.NewRequest("GET", "/carts", nil))
		require.NoError(t, err)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/carts", "201")))
	assert.Equal(t, float64(3), testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/carts", "200")))
	_, err = prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
}

func TestObserveOrderPlaced(t *testing.T) {
	before := testutil.ToFloat64(unitsSold)
	ObserveOrderPlaced("ok", 3, 0)
	ObserveOrderPlaced("rejected", 0, 0)
	assert.Equal(t, before+3, testutil.ToFloat64(unitsSold))
	assert.GreaterOrEqual(t, testutil.ToFloat64(ordersPlaced.WithLabelValues("rejected")), float64(1))
}
