package ratelimit

import (
	"time"

	applog "nexusmarket/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Rule is one named throttle. Name keys the counters and the rate.<name>.hit log action.
type Rule struct {
	Name   string
	Max    int
	Window time.Duration
}

var (
	Global       = Rule{Name: "global", Max: 120, Window: time.Minute}
	Login        = Rule{Name: "login", Max: 5, Window: 10 * time.Minute}
	Register     = Rule{Name: "register", Max: 10, Window: 10 * time.Minute}
	Availability = Rule{Name: "availability", Max: 15, Window: 30 * time.Second}
	Checkout     = Rule{Name: "checkout", Max: 10, Window: time.Minute}
)

// New builds a limiter for r. A nil storage keeps counters in process memory.
func New(r Rule, storage fiber.Storage) fiber.Handler {
	cfg := limiter.Config{
		Max:        r.Max,
		Expiration: r.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return r.Name + "|" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+r.Name+".hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests. Please try again later.",
			})
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return limiter.New(cfg)
}
