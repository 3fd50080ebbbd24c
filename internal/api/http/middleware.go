package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/api/http/requestctx"
	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/observability"
	"github.com/spec-kit/admin-console/pkg/util/errorutil"
)

// MiddlewareConfig bundles what the global middlewares need.
type MiddlewareConfig struct {
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Timeout   time.Duration
	LoginPath string
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics, cfg.LoginPath))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = errorutil.NewInternalError(nil)
			}
			if err != nil {
				// A revoked session on a page load sends the browser to the login entry point.
				var authzErr *domain.AuthorizationError
				if errors.As(err, &authzErr) && isPageRequest(c) {
					metrics.RecordError(c.Route().Path, c.Method(), "UNAUTHORIZED")
					err = c.Redirect(loginPath, fiber.StatusSeeOther)
					return
				}

				domainErr := toDomainError(err, loginPath)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

func toDomainError(err error, loginPath string) *errorutil.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return errorutil.NewDomainError(codeForStatus(fe.Code), fe.Message, fe.Code, nil)
	}
	return errorutil.ToDomainError(err, loginPath)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		if status >= 500 {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_FAILED"
	}
}

// isPageRequest is true for browser navigations as opposed to API and form calls.
func isPageRequest(c *fiber.Ctx) bool {
	if c.Method() != fiber.MethodGet {
		return false
	}
	path := c.Path()
	return !strings.HasPrefix(path, "/api/") && !strings.HasPrefix(path, "/session")
}

// CookieConfig configures the browser session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// SessionCookie assigns every browser profile a namespace id. All tabs of the
// profile share the cookie and therefore the session.
func SessionCookie(cfg CookieConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ns := c.Cookies(cfg.Name)
		if _, err := uuid.Parse(ns); err != nil {
			ns = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     cfg.Name,
				Value:    ns,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				Secure:   cfg.Secure,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		requestctx.SetNamespace(c, ns)
		return c.Next()
	}
}
