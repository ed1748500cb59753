package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cityflow/crm/internal/api/http/handlers"
	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Groups         *handlers.GroupsHandler
	Reports        *handlers.ReportsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	FilesRoot      string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}
	if cfg.FilesRoot != "" {
		app.Static("/files", cfg.FilesRoot, fiber.Static{Browse: false, Download: true})
	}

	app.Post("/auth/login", cfg.Auth.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	authed.Post("/auth/logout", cfg.Auth.Logout)
	authed.Get("/auth/me", cfg.Auth.Me)

	tickets := authed.Group("/tickets")
	tickets.Post("/preview", cfg.Tickets.Preview)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assignment", auth.RequireManager(), cfg.Tickets.Reassign)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachments)

	groups := authed.Group("/groups")
	groups.Get("/", cfg.Groups.ListGroups)
	groups.Get("/:id", cfg.Groups.GetGroup)
	groups.Post("/", auth.RequireManager(), cfg.Groups.CreateGroup)
	groups.Post("/:id/tickets", auth.RequireManager(), cfg.Groups.AddTickets)
	groups.Delete("/:id/tickets/:ticketId", auth.RequireManager(), cfg.Groups.RemoveTicket)
	groups.Post("/:id/resolve", auth.RequireManager(), cfg.Groups.ResolveGroup)

	reports := authed.Group("/reports")
	reports.Get("/dashboard", cfg.Reports.Dashboard)
	reports.Get("/export.xlsx", cfg.Reports.Export)

	admin := authed.Group("/admin", auth.RequireAdmin())
	admin.Get("/issue-types", cfg.Admin.ListIssueTypes)
	admin.Post("/issue-types", cfg.Admin.CreateIssueType)
	admin.Put("/issue-types/:id", cfg.Admin.UpdateIssueType)
	admin.Delete("/issue-types/:id", cfg.Admin.DeactivateIssueType)

	admin.Get("/regions", cfg.Admin.ListRegions)
	admin.Post("/regions", cfg.Admin.CreateRegion)
	admin.Put("/regions/:id", cfg.Admin.UpdateRegion)

	admin.Get("/city-mappings", cfg.Admin.ListCityMappings)
	admin.Post("/city-mappings", cfg.Admin.CreateCityMapping)
	admin.Delete("/city-mappings/:id", cfg.Admin.DeleteCityMapping)

	admin.Get("/teams", cfg.Admin.ListTeams)
	admin.Post("/teams", cfg.Admin.CreateTeam)
	admin.Put("/teams/:id", cfg.Admin.UpdateTeam)

	admin.Get("/profiles", cfg.Admin.ListProfiles)
	admin.Post("/profiles", cfg.Admin.CreateProfile)
	admin.Put("/profiles/:id", cfg.Admin.UpdateProfile)

	admin.Get("/routing-rules", cfg.Admin.ListRoutingRules)
	admin.Post("/routing-rules", cfg.Admin.CreateRoutingRule)
	admin.Put("/routing-rules/:id", cfg.Admin.UpdateRoutingRule)
	admin.Delete("/routing-rules/:id", cfg.Admin.DeleteRoutingRule)

	admin.Get("/sla-rules", cfg.Admin.ListSLARules)
	admin.Post("/sla-rules", cfg.Admin.CreateSLARule)
	admin.Put("/sla-rules/:id", cfg.Admin.UpdateSLARule)
	admin.Delete("/sla-rules/:id", cfg.Admin.DeleteSLARule)
}
