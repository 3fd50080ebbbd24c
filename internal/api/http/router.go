package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/admin-console/internal/api/http/handlers"
	"github.com/spec-kit/admin-console/internal/guard"
	"github.com/spec-kit/admin-console/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Session      *handlers.SessionHandler
	Pages        *handlers.PagesHandler
	Roles        *handlers.RolesHandler
	Mapping      *guard.Mapping
	Cookie       fiber.Handler
	Guard        fiber.Handler
	LoginLimiter *RateLimiter
	Metrics      *observability.Metrics
	LoginPath    string
	DeniedPath   string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	browser := app.Group("", cfg.Cookie)

	browser.Get(cfg.LoginPath, cfg.Session.LoginPage)
	if cfg.LoginLimiter != nil {
		browser.Post(cfg.LoginPath, cfg.LoginLimiter.Handle, cfg.Session.Login)
	} else {
		browser.Post(cfg.LoginPath, cfg.Session.Login)
	}
	browser.Post("/logout", cfg.Session.Logout)
	browser.Get("/session", cfg.Session.Session)
	browser.Get("/session/events", cfg.Session.Events)

	api := browser.Group("/api/console")
	api.Get("/menus", cfg.Roles.ListMenus)
	api.Get("/roles", cfg.Roles.ListRoles)
	api.Get("/roles/:id", cfg.Roles.GetRole)
	api.Post("/roles", cfg.Roles.CreateRole)
	api.Put("/roles/:id", cfg.Roles.UpdateRole)
	api.Delete("/roles/:id", cfg.Roles.DeleteRole)

	browser.Get(cfg.DeniedPath, cfg.Guard, cfg.Pages.AccessDenied)
	for _, route := range cfg.Mapping.Routes() {
		browser.Get(route.Path, cfg.Guard, cfg.Pages.Page)
		if route.Path != "/" {
			browser.Get(route.Path+"/*", cfg.Guard, cfg.Pages.Page)
		}
	}
}
