// Package requestctx carries per-request console values in fiber locals.
package requestctx

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-console/internal/gate"
)

const (
	namespaceKey = "session_namespace"
	stateKey     = "session_state"
)

// SetNamespace stores the browser namespace of the request.
func SetNamespace(c *fiber.Ctx, namespace string) {
	c.Locals(namespaceKey, namespace)
}

// Namespace returns the browser namespace set by the session cookie middleware.
func Namespace(c *fiber.Ctx) string {
	ns, _ := c.Locals(namespaceKey).(string)
	return ns
}

// SetState stores the gate state the guard admitted the request with.
func SetState(c *fiber.Ctx, state gate.State) {
	c.Locals(stateKey, state)
}

// State returns the admitted gate state.
func State(c *fiber.Ctx) (gate.State, bool) {
	state, ok := c.Locals(stateKey).(gate.State)
	return state, ok
}
