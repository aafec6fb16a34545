package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campusdesk/internal/api/http/handlers"
	"github.com/spec-kit/campusdesk/internal/auth"
	"github.com/spec-kit/campusdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Invites        *handlers.InvitesHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Auth.Me)

	accounts := protected.Group("/accounts")
	accounts.Post("/me/online", auth.RequireRole(domain.RoleTechnician), cfg.Accounts.SetOnline)
	accounts.Get("/", auth.RequirePrivileged(), cfg.Accounts.List)
	accounts.Get("/technicians", auth.RequirePrivileged(), cfg.Accounts.ListTechnicians)
	accounts.Post("/technicians", auth.RequirePrivileged(), cfg.Accounts.CreateTechnician)
	accounts.Patch("/:id/role", auth.RequireRole(domain.RoleSuperadmin), cfg.Accounts.ChangeRole)
	accounts.Patch("/:id/status", auth.RequirePrivileged(), cfg.Accounts.SetStatus)

	invites := protected.Group("/invites", auth.RequirePrivileged())
	invites.Post("/", cfg.Invites.Create)
	invites.Get("/", cfg.Invites.List)

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/token/:token", cfg.Tickets.GetByToken)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/scan", cfg.Tickets.ScanLink)
	tickets.Post("/:id/transitions", cfg.Tickets.Transition)
	tickets.Post("/:id/assign", auth.RequirePrivileged(), cfg.Tickets.Assign)
}
