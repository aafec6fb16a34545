package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/campusdesk/internal/api/http/handlers"
	"github.com/spec-kit/campusdesk/internal/app"
	"github.com/spec-kit/campusdesk/internal/auth"
)

// NewServer builds the fiber application with every middleware and route wired to
// the container's services.
func NewServer(c *app.Container) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               c.Config.App.Name,
		ProxyHeader:           c.Config.App.ProxyHeader,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(server, c.Logger, c.Metrics, c.Config.App.RequestTimeout())

	RegisterRoutes(server, RouteConfig{
		Health:         handlers.NewHealthHandler(c.Config.App.Name, c.Config.App.Version, c.Postgres, c.Redis),
		Auth:           handlers.NewAuthHandler(c.Auth, c.Accounts),
		Accounts:       handlers.NewAccountsHandler(c.Auth, c.Accounts),
		Invites:        handlers.NewInvitesHandler(c.Invites),
		Tickets:        handlers.NewTicketsHandler(c.Tickets, c.Lifecycle),
		AuthMiddleware: auth.NewAuthMiddleware(c.Auth.TokenManager(), c.Repos.Accounts),
		Metrics:        adaptor.HTTPHandler(c.Metrics.Handler()),
	})
	return server
}
