package handlers

import (
	"nexusmarket/internal/auth"
	"nexusmarket/internal/domain"
	applog "nexusmarket/internal/log"
	"nexusmarket/internal/services"

	"github.com/gofiber/fiber/v2"
)

const callerKey = "caller"

// RequireAuth resolves the bearer token into a caller, or answers 401.
func RequireAuth(authSvc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok, err := auth.ExtractToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "access token required")
		}
		caller, err := authSvc.Authenticate(tok)
		if err != nil {
			applog.Security(c, "auth.token.invalid", nil)
			return err
		}
		c.Locals(callerKey, caller)
		c.Locals(applog.UserIDKey, caller.ID)
		return c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		for _, r := range roles {
			if caller.Role == r {
				return c.Next()
			}
		}
		applog.Security(c, "access.denied.role", map[string]any{"role": caller.Role, "need": roles})
		return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
	}
}

func callerFrom(c *fiber.Ctx) services.Caller {
	caller, _ := c.Locals(callerKey).(services.Caller)
	return caller
}
