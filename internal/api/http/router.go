package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rafah-clos/request-service/internal/api/http/handlers"
	"github.com/rafah-clos/request-service/internal/auth"
	"github.com/rafah-clos/request-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Requests  *handlers.RequestsHandler
	Push      *handlers.PushHandler
	AppConfig *handlers.AppConfigHandler
	GasProxy  *handlers.GasProxyHandler
	Verifier  *auth.Verifier
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Get("/app-config.json", cfg.AppConfig.Get)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Verifier.Middleware(), cfg.Auth.Me)

	requests := api.Group("/requests", cfg.Verifier.Middleware())
	requests.Get("/", cfg.Requests.List)
	requests.Post("/", auth.RequireRoles(domain.RoleStaff, domain.RoleAdmin), cfg.Requests.Create)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Patch("/:id", cfg.Requests.Update)
	requests.Post("/:id/assign", auth.RequireRoles(domain.RoleStaff, domain.RoleAdmin), cfg.Requests.Assign)
	requests.Post("/:id/status", cfg.Requests.ChangeStatus)

	api.Post("/push/register", cfg.Verifier.Middleware(), cfg.Push.Register)

	if cfg.GasProxy != nil {
		api.All("/gas/*", cfg.GasProxy.Proxy)
	}
}
