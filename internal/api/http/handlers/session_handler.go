package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/api/dto"
	"github.com/spec-kit/admin-console/internal/api/http/requestctx"
	"github.com/spec-kit/admin-console/internal/gate"
)

const heartbeatInterval = 15 * time.Second

// SessionHandler exposes login, logout and the reactive session state.
type SessionHandler struct {
	gates     *gate.Registry
	validate  *validator.Validate
	loginPath string
	homePath  string
	logger    *zap.Logger
}

// NewSessionHandler constructs handler.
func NewSessionHandler(gates *gate.Registry, validate *validator.Validate, loginPath string, logger *zap.Logger) *SessionHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SessionHandler{gates: gates, validate: validate, loginPath: loginPath, homePath: "/", logger: logger}
}

func (h *SessionHandler) gate(c *fiber.Ctx) *gate.Gate {
	return h.gates.Get(c.UserContext(), requestctx.Namespace(c))
}

// LoginPage handles GET /login. Signed-in visitors go straight home.
func (h *SessionHandler) LoginPage(c *fiber.Ctx) error {
	if h.gate(c).CheckAuth(c.UserContext()) {
		return c.Redirect(h.homePath, fiber.StatusSeeOther)
	}
	return c.JSON(dto.LoginPageResponse{Page: "Login"})
}

// Login handles POST /login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	user, err := h.gate(c).Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.SessionResponse{Authenticated: true, User: user})
}

// Logout handles POST /logout and sends the browser to the login page.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.gate(c).Logout(c.UserContext())
	return c.Redirect(h.loginPath, fiber.StatusSeeOther)
}

// Session handles GET /session.
func (h *SessionHandler) Session(c *fiber.Ctx) error {
	g := h.gate(c)
	g.CheckAuth(c.UserContext())
	state := g.State()
	return c.JSON(dto.SessionResponse{Authenticated: state.Authenticated, User: state.User})
}

// Events handles GET /session/events, a server-sent event stream of the
// session state. Every tab of the browser holds one; a sign-out anywhere
// arrives here as an unauthenticated state with the login path to go to.
func (h *SessionHandler) Events(c *fiber.Ctx) error {
	states, cancel := h.gate(c).Watch()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	loginPath := h.loginPath
	logger := h.logger
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case state, ok := <-states:
				if !ok {
					return
				}
				if err := writeState(w, state, loginPath); err != nil {
					logger.Debug("session stream closed", zap.Error(err))
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

type stateEvent struct {
	dto.SessionResponse
	Redirect string `json:"redirect,omitempty"`
}

func writeState(w *bufio.Writer, state gate.State, loginPath string) error {
	ev := stateEvent{SessionResponse: dto.SessionResponse{Authenticated: state.Authenticated, User: state.User}}
	if !state.Authenticated {
		ev.Redirect = loginPath
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
