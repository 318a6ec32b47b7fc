package handlers

import (
	"nexusmarket/internal/config"
	"nexusmarket/internal/domain"
	"nexusmarket/internal/observability/metrics"
	"nexusmarket/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp wires middleware and routes. A nil storage keeps rate-limit counters in memory.
func NewApp(cfg config.Config, d *Deps, storage fiber.Storage) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "nexusmarket",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: ErrorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(metrics.Middleware())

	// ---------- Health ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/readyz", func(c *fiber.Ctx) error {
		if err := d.DB.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
		}
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ---------- API ----------
	api := app.Group("/api", ratelimit.New(ratelimit.Global, storage))
	authn := RequireAuth(d.AuthSvc)
	seller := RequireRole(domain.RoleSeller)

	api.Post("/auth/register", ratelimit.New(ratelimit.Register, storage), d.AuthHandler.Register)
	api.Post("/auth/login", ratelimit.New(ratelimit.Login, storage), d.AuthHandler.Login)
	api.Get("/users/profile", authn, d.UserHandler.Profile)

	// Fixed paths go before /:id.
	products := api.Group("/products")
	products.Get("/", d.ProductHandler.List)
	products.Get("/categories", d.ProductHandler.Categories)
	products.Get("/my/products", authn, seller, d.ProductHandler.Mine)
	products.Get("/my/stats", authn, seller, d.ProductHandler.Stats)
	products.Get("/:id", d.ProductHandler.Detail)
	products.Get("/:id/availability", ratelimit.New(ratelimit.Availability, storage), d.ProductHandler.Availability)
	products.Post("/", authn, seller, d.ProductHandler.Create)
	products.Put("/:id", authn, seller, d.ProductHandler.Update)
	products.Patch("/:id/status", authn, seller, d.ProductHandler.SetStatus)
	products.Patch("/:id/stock", authn, seller, d.ProductHandler.AdjustStock)
	products.Delete("/:id", authn, seller, d.ProductHandler.Delete)

	orders := api.Group("/orders", authn)
	orders.Post("/", ratelimit.New(ratelimit.Checkout, storage), d.OrderHandler.Place)
	orders.Get("/", d.OrderHandler.List)
	orders.Get("/stats", d.OrderHandler.Stats)
	orders.Get("/:id", d.OrderHandler.View)

	admin := api.Group("/admin", authn, RequireRole(domain.RoleAdmin))
	admin.Get("/orders", d.AdminHandler.ListOrders)
	admin.Patch("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)

	// ---------- 404 ----------
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Route not found"})
	})
	return app
}
