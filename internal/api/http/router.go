package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/freshmanacadamy/Ver/internal/api/http/handlers"
	"github.com/freshmanacadamy/Ver/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Webhook        *handlers.WebhookHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Admins         *auth.AdminList
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhook", cfg.Webhook.Receive)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin(cfg.Admins))
	admin.Get("/pending", cfg.Admin.Pending)
	admin.Post("/listings/:id/decision", cfg.Admin.Decide)
	admin.Get("/chats", cfg.Admin.Chats)
	admin.Get("/chats/:identity", cfg.Admin.Chat)
	admin.Delete("/chats/:identity", cfg.Admin.EndChat)
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Put("/maintenance", cfg.Admin.Maintenance)
	admin.Get("/audit/:subject", cfg.Admin.Audit)
}
