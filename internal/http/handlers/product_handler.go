package handlers

import (
	"strconv"

	"nexusmarket/internal/domain"
	"nexusmarket/internal/log"
	"nexusmarket/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Security(c, "validation.fail", map[string]any{"field": key})
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return &d, nil
}

// GET /api/products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := services.ListQuery{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("sellerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid sellerId")
		}
		q.SellerID = id
	}
	var err error
	if q.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return err
	}
	if q.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return err
	}
	items, err := h.Catalog.ListProducts(c.UserContext(), q)
	if err != nil {
		return err
	}
	return list(c, items)
}

func (h *ProductHandler) Categories(c *fiber.Ctx) error {
	return ok(c, h.Catalog.Categories())
}

// GET /api/products/:id counts a view on every successful read.
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	if err := h.Catalog.IncrementViews(c.UserContext(), id); err != nil {
		log.Warn(c, "product.views.fail", err, map[string]any{"product_id": id})
	} else {
		p.Views++
	}
	return ok(c, p)
}

func (h *ProductHandler) Availability(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	a, err := h.Catalog.Availability(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, a)
}

func (h *ProductHandler) Mine(c *fiber.Ctx) error {
	items, err := h.Catalog.ListBySeller(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	return list(c, items)
}

func (h *ProductHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Catalog.SellerStats(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	return ok(c, st)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), callerFrom(c), in)
	if err != nil {
		return err
	}
	log.Audit(c, "product.create", map[string]any{"product_id": p.ID, "stock": p.Stock})
	return created(c, "Product created successfully", p)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in services.ProductInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), callerFrom(c), id, in)
	if err != nil {
		return h.denied(c, "product.update.fail", id, err)
	}
	log.Audit(c, "product.update", map[string]any{"product_id": id, "stock": p.Stock, "status": p.Status})
	return c.JSON(fiber.Map{"success": true, "message": "Product updated successfully", "data": p})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *ProductHandler) SetStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in statusRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.Catalog.ChangeStatus(c.UserContext(), callerFrom(c), id, domain.ProductStatus(in.Status))
	if err != nil {
		return h.denied(c, "product.status.fail", id, err)
	}
	log.Audit(c, "product.status", map[string]any{"product_id": id, "status": p.Status})
	return c.JSON(fiber.Map{"success": true, "message": "Product status updated", "data": p})
}

type stockRequest struct {
	Quantity *int `json:"quantity"`
}

// PATCH /api/products/:id/stock applies a signed delta.
func (h *ProductHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in stockRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if in.Quantity == nil {
		return fiber.NewError(fiber.StatusBadRequest, "quantity is required")
	}
	p, err := h.Catalog.AdjustStock(c.UserContext(), callerFrom(c), id, *in.Quantity)
	if err != nil {
		return h.denied(c, "product.stock.fail", id, err)
	}
	log.Audit(c, "product.stock.adjust", map[string]any{"product_id": id, "delta": *in.Quantity, "stock": p.Stock})
	return c.JSON(fiber.Map{"success": true, "message": "Stock updated", "data": p})
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.Catalog.RemoveProduct(c.UserContext(), callerFrom(c), id); err != nil {
		return h.denied(c, "product.delete.fail", id, err)
	}
	log.Audit(c, "product.delete", map[string]any{"product_id": id})
	return message(c, "Product deleted successfully")
}

// denied logs ownership violations before handing the error to the error handler.
func (h *ProductHandler) denied(c *fiber.Ctx, action string, id int64, err error) error {
	if _, msg := classify(err); msg != friendlyError {
		log.Security(c, action, map[string]any{"product_id": id, "reason": msg})
	}
	return err
}
