package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/asset-desk/internal/api/http/handlers"
	"github.com/spec-kit/asset-desk/internal/auth"
	"github.com/spec-kit/asset-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Suppliers      *handlers.SuppliersHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if reg := cfg.Metrics.Registry(); reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	editors := auth.RequireEditor()

	suppliers := api.Group("/suppliers")
	suppliers.Get("/", cfg.Suppliers.ListSuppliers)
	suppliers.Get("/:id", cfg.Suppliers.GetSupplier)
	suppliers.Post("/", editors, cfg.Suppliers.CreateSupplier)
	suppliers.Patch("/:id", editors, cfg.Suppliers.UpdateSupplier)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", editors, cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", editors, cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", editors, cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/status", auth.RequireApprovedEditor(), cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/interactions", cfg.Tickets.ListInteractions)
	tickets.Post("/:id/interactions", editors, cfg.Tickets.AddInteraction)
	tickets.Post("/:id/duplicate", editors, cfg.Tickets.DuplicateTicket)
	tickets.Get("/:id/sla", cfg.Tickets.TicketSLA)

	api.Get("/sla/classify", cfg.Tickets.ClassifyDeadline)
}
