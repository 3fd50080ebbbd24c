package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-console/internal/api/dto"
	"github.com/spec-kit/admin-console/internal/api/http/requestctx"
	"github.com/spec-kit/admin-console/internal/guard"
)

// PagesHandler renders the guarded screens.
type PagesHandler struct {
	mapping *guard.Mapping
}

// NewPagesHandler constructs handler.
func NewPagesHandler(mapping *guard.Mapping) *PagesHandler {
	return &PagesHandler{mapping: mapping}
}

// Page renders the screen mapped to the request path.
func (h *PagesHandler) Page(c *fiber.Ctx) error {
	state, _ := requestctx.State(c)
	title := "Not Found"
	if route, ok := h.mapping.Match(c.Path()); ok {
		title = route.Menu
	}
	return c.JSON(dto.PageResponse{Page: title, Path: c.Path(), User: state.User})
}

// AccessDenied renders the page unauthorized navigations land on.
func (h *PagesHandler) AccessDenied(c *fiber.Ctx) error {
	state, _ := requestctx.State(c)
	return c.Status(fiber.StatusForbidden).JSON(dto.PageResponse{Page: "Access Denied", Path: c.Path(), User: state.User})
}
