package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/domain"
)

// AllowedMenuNames returns the names of menus whose id has canView in perms,
// in the order of menus.
func AllowedMenuNames(menus []domain.Menu, perms []domain.RolePermission) []string {
	viewable := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		if p.CanView {
			viewable[p.MenuID] = struct{}{}
		}
	}
	names := make([]string, 0, len(viewable))
	seen := make(map[string]struct{}, len(viewable))
	for _, m := range menus {
		if _, ok := viewable[m.ID]; !ok {
			continue
		}
		if _, dup := seen[m.MenuName]; dup {
			continue
		}
		seen[m.MenuName] = struct{}{}
		names = append(names, m.MenuName)
	}
	return names
}

// resolvePermissions computes the menu names the role may view. The calls are
// sequential because the role id may come from the role list.
func (s *AuthService) resolvePermissions(ctx context.Context, token, role string) ([]string, []domain.RolePermission, error) {
	roles := s.roles.withBearer(token)

	menus, err := roles.ListMenus(ctx)
	if err != nil {
		return nil, nil, &domain.PermissionResolutionError{Step: "list menus", Err: err}
	}
	if s.menuAudit != nil {
		s.menuAudit(menus)
	}

	roleID, found, err := s.resolveRoleID(ctx, roles, role)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		s.logger.Info("role not found; no menu restrictions applied", zap.String("role", role))
		return nil, nil, nil
	}

	detail, err := roles.GetRole(ctx, roleID)
	if err != nil {
		return nil, nil, &domain.PermissionResolutionError{Step: "get role", Err: err}
	}
	return AllowedMenuNames(menus, detail.Permissions), detail.Permissions, nil
}

func (s *AuthService) resolveRoleID(ctx context.Context, roles *RoleService, role string) (int64, bool, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return 0, false, nil
	}
	if id, err := strconv.ParseInt(role, 10, 64); err == nil {
		return id, true, nil
	}

	all, err := roles.ListRoles(ctx)
	if err != nil {
		return 0, false, &domain.PermissionResolutionError{Step: "list roles", Err: err}
	}
	for _, r := range all {
		if strings.EqualFold(r.Name, role) {
			return r.RoleID, true, nil
		}
	}
	return 0, false, nil
}
