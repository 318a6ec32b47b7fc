package handlers

import (
	"nexusmarket/internal/domain"
	applog "nexusmarket/internal/log"
	"nexusmarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Orders *services.OrderService
}

// GET /api/admin/orders
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 500")
	}
	ords, err := h.Orders.ListLatest(c.UserContext(), callerFrom(c), limit)
	if err != nil {
		return err
	}
	return list(c, ords)
}

// PATCH /api/admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in statusRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if in.Status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing status")
	}
	o, err := h.Orders.UpdateStatus(c.UserContext(), callerFrom(c), id, domain.OrderStatus(in.Status))
	if err != nil {
		applog.Warn(c, "admin.orders.update.fail", err, map[string]any{"order_id": id, "status": in.Status})
		return err
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": o.Status})
	return c.JSON(fiber.Map{"success": true, "message": "Order status updated", "data": o})
}
