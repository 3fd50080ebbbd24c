package devapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/auth"
	"github.com/spec-kit/admin-console/internal/domain"
)

type loginResponse struct {
	Token      string `json:"token"`
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

type project struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Site   string `json:"site"`
	Status string `json:"status"`
}

var projects = []project{
	{ID: 101, Name: "Riverside Apartments", Site: "Block C", Status: "in_progress"},
	{ID: 102, Name: "Harbor Warehouse", Site: "Pier 4", Status: "planning"},
	{ID: 103, Name: "Hillcrest School Annex", Site: "North Lot", Status: "completed"},
}

func (s *Server) login(c *fiber.Ctx) error {
	var creds domain.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if err := s.validate.Struct(creds); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	acc, ok := s.dir.Authenticate(creds.Email, creds.Password)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
	}
	token, _, err := s.tokens.GenerateToken(strconv.FormatInt(acc.ID, 10), acc.Role)
	if err != nil {
		return err
	}
	s.logger.Info("dev backend login", zap.String("email", acc.Email))
	return c.JSON(loginResponse{
		Token:      token,
		ID:         acc.ID,
		Name:       acc.Name,
		Email:      acc.Email,
		Role:       acc.Role,
		Department: acc.Department,
		Avatar:     acc.Avatar,
	})
}

func (s *Server) logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	s.revoked.Revoke(principal.Claims.ID, principal.Claims.ExpiresAt.Time)
	return c.SendStatus(fiber.StatusNoContent)
}

// refresh trades a signed, unrevoked token (expired or not) for a new one.
func (s *Server) refresh(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) {
		return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}
	claims, err := s.tokens.ParseRefreshable(header[len(prefix):])
	if err != nil || s.revoked.IsRevoked(claims.ID) {
		return fiber.NewError(fiber.StatusUnauthorized, "token cannot be refreshed")
	}
	token, _, err := s.tokens.GenerateToken(claims.Subject, claims.Role)
	if err != nil {
		return err
	}
	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	return c.JSON(fiber.Map{"token": token})
}

func (s *Server) listMenus(c *fiber.Ctx) error {
	return c.JSON(s.dir.Menus())
}

func (s *Server) listRoles(c *fiber.Ctx) error {
	return c.JSON(s.dir.Roles())
}

func (s *Server) getRole(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}
	role, ok := s.dir.Role(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "role not found")
	}
	return c.JSON(role)
}

func (s *Server) createRole(c *fiber.Ctx) error {
	in, err := s.roleInput(c)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.dir.CreateRole(in))
}

func (s *Server) updateRole(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}
	in, err := s.roleInput(c)
	if err != nil {
		return err
	}
	role, ok := s.dir.UpdateRole(id, in)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "role not found")
	}
	return c.JSON(role)
}

func (s *Server) deleteRole(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}
	if !s.dir.DeleteRole(id) {
		return fiber.NewError(fiber.StatusNotFound, "role not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listProjects(c *fiber.Ctx) error {
	return c.JSON(projects)
}

func (s *Server) roleInput(c *fiber.Ctx) (domain.RoleInput, error) {
	var in domain.RoleInput
	if err := c.BodyParser(&in); err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if err := s.validate.Struct(in); err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return in, nil
}

func roleID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid role id")
	}
	return id, nil
}

func canCreate(p domain.RolePermission) bool { return p.CanCreate }
func canUpdate(p domain.RolePermission) bool { return p.CanUpdate }
func canDelete(p domain.RolePermission) bool { return p.CanDelete }

// requireRoleAdmin admits callers whose role grants check on the Roles menu.
func (s *Server) requireRoleAdmin(check func(domain.RolePermission) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		if !s.dir.Allows(principal.Role, "Roles", check) {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
