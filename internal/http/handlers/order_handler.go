package handlers

import (
	"errors"

	applog "nexusmarket/internal/log"
	"nexusmarket/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	Orders *services.OrderService
}

func fixed(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}

// POST /api/orders
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var cart services.CartPayload
	if err := parseBody(c, &cart); err != nil {
		return err
	}
	o, totals, err := h.Orders.Place(c.UserContext(), callerFrom(c), cart)
	if err != nil {
		var known *services.Error
		if errors.As(err, &known) {
			applog.Security(c, "order.place.fail", map[string]any{"lines": len(cart.Items), "error": err.Error()})
		}
		return err
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id":     o.ID,
		"server_total": totals.ServerTotal.StringFixed(2),
		"client_total": fixed(totals.ClientTotal),
		"mismatch":     totals.Mismatch,
	})
	return created(c, "Order created successfully", o)
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.Orders.ListForUser(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	return list(c, orders)
}

func (h *OrderHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Orders.UserStats(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	return ok(c, st)
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	o, err := h.Orders.GetForUser(c.UserContext(), callerFrom(c), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		}
		return err
	}
	return ok(c, o)
}
