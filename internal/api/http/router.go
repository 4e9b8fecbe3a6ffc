package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/municipio-kit/chamados-service/internal/api/http/handlers"
	"github.com/municipio-kit/chamados-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Units          *handlers.UnitsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.SignUp)
	authGroup.Post("/signin", cfg.Auth.SignIn)
	authGroup.Post("/signout", cfg.Auth.SignOut)

	profile := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireActor())
	profile.Get("/me", cfg.Auth.Me)
	profile.Patch("/profile", cfg.Auth.UpdateProfile)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireActor())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/audit", auth.RequireAdministrator(), cfg.Tickets.ListAuditTrail)

	units := app.Group("/units", cfg.AuthMiddleware.Handle, auth.RequireAdministrator())
	units.Post("", cfg.Units.CreateUnit)
	units.Get("", cfg.Units.ListUnits)
	units.Patch("/:id", cfg.Units.RenameUnit)
	units.Delete("/:id", cfg.Units.DeactivateUnit)
}
