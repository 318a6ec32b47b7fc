package handlers

import (
	"errors"

	"nexusmarket/internal/log"
	"nexusmarket/internal/services"
	"nexusmarket/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func authResponse(c *fiber.Ctx, status int, msg string, res services.AuthResult) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": msg,
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	res, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, services.ErrConflict) || errors.Is(err, services.ErrBadRequest) {
			log.Security(c, "auth.register.fail", map[string]any{"email": in.Email, "reason": err.Error()})
		}
		return err
	}
	c.Locals(log.UserIDKey, res.User.ID)
	log.Audit(c, "auth.register.success", map[string]any{"email": res.User.Email, "role": res.User.Role})
	return authResponse(c, fiber.StatusCreated, "User registered successfully", res)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if _, ok := validate.Email(in.Email); !ok || in.Password == "" {
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": "bad_format"})
		return services.ErrBadCreds
	}
	res, err := h.Auth.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			log.Security(c, "auth.login.fail", map[string]any{"email": in.Email})
		}
		return err
	}
	c.Locals(log.UserIDKey, res.User.ID)
	log.Audit(c, "auth.login.success", map[string]any{"email": res.User.Email})
	return authResponse(c, fiber.StatusOK, "Login successful", res)
}

type UserHandler struct {
	Auth *services.AuthService
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	u, err := h.Auth.Profile(c.UserContext(), callerFrom(c).ID)
	if err != nil {
		return err
	}
	return ok(c, u)
}
