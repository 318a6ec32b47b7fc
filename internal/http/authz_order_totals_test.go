package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Client prices and totals are ignored; the server recomputes from live products.
func TestOrderTotalsRecomputed(t *testing.T) {
	env := newTestApp(t)
	seller, _ := env.register(t, "seller@nexus.test", "seller")
	client, _ := env.register(t, "client@nexus.test", "client")
	id := env.createProduct(t, seller, "Game Boy Color", 129.99, 5)

	var resp *http.Response
	var body map[string]any
	entries := captureLogs(t, func() {
		resp, body = env.do(t, "POST", "/api/orders", client, map[string]any{
			"items": []map[string]any{{
				"productId": id, "productName": "Free Console", "price": 1.00, "quantity": 2, "sellerName": "Nobody",
			}},
			"subtotal":        2.00,
			"shippingCost":    7.00,
			"totalAmount":     9.00,
			"shippingAddress": "1 Main St",
		})
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)

	order := body["data"].(map[string]any)
	assert.InDelta(t, 259.98, order["subtotal"].(float64), 0.001)
	assert.InDelta(t, 266.98, order["totalAmount"].(float64), 0.001)
	assert.Equal(t, "pending", order["status"])
	items := order["items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.InDelta(t, 129.99, line["price"].(float64), 0.001)
	assert.Equal(t, "Game Boy Color", line["productName"])
	assert.Equal(t, "Alice Smith", line["sellerName"])

	audit, ok := findLog(entries, "order.place")
	require.True(t, ok, "order.place audit log missing")
	assert.Equal(t, "audit", audit.Level)
	assert.Equal(t, "266.98", audit.Fields["server_total"])
	assert.Equal(t, "9.00", audit.Fields["client_total"])
	assert.Equal(t, true, audit.Fields["mismatch"])

	resp, body = env.do(t, "GET", path("/api/products/:id", id), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["data"].(map[string]any)["stock"])
}

func TestOrderOverQuantityRejected(t *testing.T) {
	env := newTestApp(t)
	seller, _ := env.register(t, "seller@nexus.test", "seller")
	client, _ := env.register(t, "client@nexus.test", "client")
	id := env.createProduct(t, seller, "Coffee Mug", 10, 2)

	resp, body := env.placeOrder(t, client, id, 5)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `insufficient stock for product "Coffee Mug": available 2, requested 5`, body["message"])

	resp, body = env.do(t, "GET", "/api/orders", client, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["total"])

	resp, body = env.do(t, "GET", path("/api/products/:id/availability", id), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["qty"])
	assert.Equal(t, "LOW_STOCK", data["status"])
}

func TestOrderHistoryAndStats(t *testing.T) {
	env := newTestApp(t)
	seller, _ := env.register(t, "seller@nexus.test", "seller")
	client, _ := env.register(t, "client@nexus.test", "client")
	a := env.createProduct(t, seller, "Notebook", 5, 10)
	b := env.createProduct(t, seller, "Pen Set", 10, 10)

	for _, id := range []int64{a, b} {
		resp, body := env.do(t, "POST", "/api/orders", client, map[string]any{
			"items":        []map[string]any{{"productId": id, "quantity": 3}},
			"shippingCost": 0,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)
	}

	resp, body := env.do(t, "GET", "/api/orders", client, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])

	resp, body = env.do(t, "GET", "/api/orders/stats", client, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["data"].(map[string]any)
	assert.Equal(t, float64(2), stats["totalOrders"])
	assert.Equal(t, "45.00", stats["totalSpent"])
	assert.Equal(t, float64(6), stats["totalItems"])
}
