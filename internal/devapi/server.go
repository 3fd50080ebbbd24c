// Package devapi is a local stand-in for the console's backend REST API. It
// serves the auth, role and menu endpoints the console consumes.
package devapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/auth"
	"github.com/spec-kit/admin-console/internal/config"
	"github.com/spec-kit/admin-console/internal/observability"
)

// Server is the dev backend.
type Server struct {
	app      *fiber.App
	dir      *Directory
	tokens   *auth.TokenManager
	revoked  *auth.Revocations
	validate *validator.Validate
	logger   *zap.Logger
}

// New builds the server. A nil seeds slice loads DefaultSeeds.
func New(cfg config.DevAPIConfig, seeds []Seed, logger *zap.Logger) (*Server, error) {
	if seeds == nil {
		seeds = DefaultSeeds
	}
	dir, err := NewDirectory(seeds, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	s := &Server{
		dir:      dir,
		tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTLMinutes),
		revoked:  auth.NewRevocations(),
		validate: validator.New(),
		logger:   logger,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "console-devapi",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
		ReadTimeout:           15 * time.Second,
	})
	s.app.Use(observability.RequestLogger(logger, nil))
	s.routes()
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Directory exposes the backing data.
func (s *Server) Directory() *Directory { return s.dir }

// RevokeToken signs a token out as if its owner had logged out elsewhere.
func (s *Server) RevokeToken(token string) error {
	claims, err := s.tokens.ParseRefreshable(token)
	if err != nil {
		return err
	}
	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	return nil
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("dev backend listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	mw := auth.NewAuthMiddleware(s.tokens, s.revoked)

	s.app.Post("/api/auth/login", s.login)
	s.app.Post("/api/auth/refresh", s.refresh)
	s.app.Post("/auth/logout", mw.Handle, s.logout)

	api := s.app.Group("/api", mw.Handle)
	api.Get("/roles/GetAllMenu", s.listMenus)
	api.Get("/roles", s.listRoles)
	api.Get("/roles/:id", s.getRole)
	api.Post("/roles", s.requireRoleAdmin(canCreate), s.createRole)
	api.Put("/roles/:id", s.requireRoleAdmin(canUpdate), s.updateRole)
	api.Delete("/roles/:id", s.requireRoleAdmin(canDelete), s.deleteRole)
	api.Get("/projects", s.listProjects)
}

// handleError renders every failure as {"message": ...}, the shape the console reads.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	} else {
		s.logger.Error("dev backend request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"message": message})
}
