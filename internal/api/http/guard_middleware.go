package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/api/http/requestctx"
	"github.com/spec-kit/admin-console/internal/gate"
	"github.com/spec-kit/admin-console/internal/guard"
	"github.com/spec-kit/admin-console/internal/observability"
)

// GuardMiddleware admits protected navigations. Unauthenticated visitors are
// sent to the login page and unauthorized ones to the access denied page,
// both with 303 so the protected URL does not stay in history.
func GuardMiddleware(gates *gate.Registry, g *guard.Guard, metrics *observability.Metrics, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		gt := gates.Get(ctx, requestctx.Namespace(c))
		authenticated := gt.CheckAuth(ctx)
		state := gt.State()

		var decision guard.Decision
		if authenticated && state.User == nil {
			// The stored profile could not be read; navigation is not blocked on it.
			logger.Debug("admitting session without readable profile", zap.String("path", c.Path()))
			decision = guard.Decision{Action: guard.Allow}
		} else {
			var allowed []string
			if state.User != nil {
				allowed = state.User.AllowedMenuNames
			}
			decision = g.Decide(c.Path(), authenticated, allowed)
		}
		metrics.RecordGuardDecision(decision.Action.String())

		switch decision.Action {
		case guard.Allow:
			requestctx.SetState(c, state)
			return c.Next()
		case guard.Hold:
			return c.SendStatus(fiber.StatusNoContent)
		default:
			return c.Redirect(decision.Location, fiber.StatusSeeOther)
		}
	}
}
