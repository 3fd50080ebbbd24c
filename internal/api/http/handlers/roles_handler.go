package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/admin-console/internal/api/dto"
	"github.com/spec-kit/admin-console/internal/api/http/requestctx"
	"github.com/spec-kit/admin-console/internal/service"
)

// RolesHandler proxies role administration to the backend on behalf of the
// browser's session.
type RolesHandler struct {
	provider *service.Provider
}

// NewRolesHandler constructs handler.
func NewRolesHandler(provider *service.Provider) *RolesHandler {
	return &RolesHandler{provider: provider}
}

func (h *RolesHandler) roles(c *fiber.Ctx) *service.RoleService {
	return h.provider.For(requestctx.Namespace(c)).Roles
}

// ListMenus handles GET /api/console/menus.
func (h *RolesHandler) ListMenus(c *fiber.Ctx) error {
	menus, err := h.roles(c).ListMenus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse{Data: menus})
}

// ListRoles handles GET /api/console/roles.
func (h *RolesHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.roles(c).ListRoles(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse{Data: roles})
}

// GetRole handles GET /api/console/roles/:id.
func (h *RolesHandler) GetRole(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}
	role, err := h.roles(c).GetRole(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse{Data: role})
}

// CreateRole handles POST /api/console/roles.
func (h *RolesHandler) CreateRole(c *fiber.Ctx) error {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	role, err := h.roles(c).CreateRole(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DataResponse{Data: role})
}

// UpdateRole handles PUT /api/console/roles/:id.
func (h *RolesHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	role, err := h.roles(c).UpdateRole(c.UserContext(), id, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.DataResponse{Data: role})
}

// DeleteRole handles DELETE /api/console/roles/:id.
func (h *RolesHandler) DeleteRole(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}
	if err := h.roles(c).DeleteRole(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func roleID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}
	return id, nil
}
