package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdex/helpdex/internal/api/http/handlers"
	"github.com/helpdex/helpdex/internal/auth"
	"github.com/helpdex/helpdex/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Summary        *handlers.SummaryHandler
	Users          *handlers.UsersHandler
	Notifications  *handlers.NotificationsHandler
	Categories     *handlers.CategoriesHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Users.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	// Static paths must register before the :id wildcard.
	tickets.Get("/summary",
		auth.RequireRole(domain.RoleClient, domain.RoleDeveloper, domain.RoleQA), cfg.Summary.GetSummary)
	tickets.Get("/average-resolution-time",
		auth.RequireRole(domain.RoleQA), cfg.Summary.AverageResolutionTime)

	tickets.Post("/",
		auth.RequireRole(domain.RoleClient), cfg.Tickets.CreateTicket)
	tickets.Get("/",
		auth.RequireRole(domain.RoleClient, domain.RoleDeveloper, domain.RoleQA), cfg.Tickets.ListTickets)
	tickets.Get("/:id",
		auth.RequireRole(domain.RoleClient, domain.RoleDeveloper, domain.RoleQA), cfg.Tickets.GetTicket)
	tickets.Patch("/:id",
		auth.RequireRole(domain.RoleClient, domain.RoleDeveloper, domain.RoleQA), cfg.Tickets.UpdateTicket)
	tickets.Patch("/:id/status",
		auth.RequireRole(domain.RoleDeveloper, domain.RoleQA), cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assign",
		auth.RequireRole(domain.RoleQA), cfg.Tickets.AssignDeveloper)
	tickets.Post("/:id/comments",
		auth.RequireRole(domain.RoleClient, domain.RoleDeveloper, domain.RoleQA), cfg.Tickets.AddComment)
	tickets.Get("/:id/attachments",
		auth.RequireRole(domain.RoleClient, domain.RoleDeveloper, domain.RoleQA), cfg.Tickets.ListAttachments)

	protected.Get("/users/developers",
		auth.RequireRole(domain.RoleQA), cfg.Users.ListDevelopers)
	protected.Get("/categories",
		auth.RequireRole(), cfg.Categories.ListCategories)

	protected.Get("/notifications", auth.RequireRole(), cfg.Notifications.ListNotifications)
	protected.Patch("/notifications/:id/read", auth.RequireRole(), cfg.Notifications.MarkRead)
}
