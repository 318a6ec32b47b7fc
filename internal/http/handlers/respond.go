package handlers

import (
	"errors"
	"strconv"

	applog "nexusmarket/internal/log"
	"nexusmarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

const friendlyError = "Something went wrong. Please try again."

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func created(c *fiber.Ctx, msg string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": msg, "data": data})
}

func list[T any](c *fiber.Ctx, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(fiber.Map{"success": true, "data": items, "total": len(items)})
}

func message(c *fiber.Ctx, msg string) error {
	return c.JSON(fiber.Map{"success": true, "message": msg})
}

// ErrorHandler turns service error kinds into status codes. Anything unrecognised is logged
// and reported as a generic 500 so internals never reach the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, msg := classify(err)
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
		msg = friendlyError
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrBadRequest), errors.Is(err, services.ErrInsufficientStock):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, err.Error()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, friendlyError
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		applog.Security(c, "validation.fail", map[string]any{"field": "id", "value": c.Params("id")})
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body"})
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
