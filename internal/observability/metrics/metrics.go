package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusmarket_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexusmarket_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	ordersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusmarket_orders_placed_total",
		Help: "Order placement attempts by result",
	}, []string{"result"})

	orderPlaceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexusmarket_order_place_duration_seconds",
		Help:    "Duration of the order placement transaction",
		Buckets: prometheus.DefBuckets,
	})

	unitsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexusmarket_units_sold_total",
		Help: "Product units decremented by committed orders",
	})

	orderStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusmarket_order_status_changes_total",
		Help: "Fulfillment status transitions",
	}, []string{"to"})

	eventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusmarket_event_publish_failures_total",
		Help: "Domain events that could not be published",
	}, []string{"topic"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveOrderPlaced records one placement attempt. result is ok, rejected or error.
func ObserveOrderPlaced(result string, units int, duration time.Duration) {
	ordersPlaced.WithLabelValues(result).Inc()
	orderPlaceDuration.Observe(duration.Seconds())
	if units > 0 {
		unitsSold.Add(float64(units))
	}
}

func ObserveStatusChange(to string) { orderStatusChanges.WithLabelValues(to).Inc() }

func ObservePublishFailure(topic string) { eventPublishFailures.WithLabelValues(topic).Inc() }

// Middleware labels by route pattern, not raw path, to keep cardinality bounded.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < 400 {
				status = fiber.StatusInternalServerError
			}
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		// c.Method() aliases a request buffer fasthttp reuses.
		ObserveHTTPRequest(utils.CopyString(c.Method()), route, strconv.Itoa(status), time.Since(start))
		return err
	}
}
