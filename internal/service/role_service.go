package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/admin-console/internal/apiclient"
	"github.com/spec-kit/admin-console/internal/domain"
)

// Backend endpoints for role administration.
const (
	menusPath = "/api/roles/GetAllMenu"
	rolesPath = "/api/roles"
)

// RoleService is a thin accessor for the backend's role, menu and permission endpoints.
// It neither caches nor retries.
type RoleService struct {
	api      *apiclient.Client
	validate *validator.Validate
	bearer   string
	quiet    bool
}

// NewRoleService builds the service.
func NewRoleService(api *apiclient.Client, validate *validator.Validate) *RoleService {
	if validate == nil {
		validate = validator.New()
	}
	return &RoleService{api: api, validate: validate}
}

// withBearer returns a copy that authenticates with token and reports 401 as a
// plain error instead of signing the session out.
func (s *RoleService) withBearer(token string) *RoleService {
	cp := *s
	cp.bearer = token
	cp.quiet = true
	return &cp
}

func (s *RoleService) do(ctx context.Context, method, path string, body, out any) error {
	return s.api.Do(ctx, apiclient.Request{
		Method:               method,
		Path:                 path,
		Body:                 body,
		Out:                  out,
		BearerToken:          s.bearer,
		SkipUnauthorizedHook: s.quiet,
	})
}

// ListMenus returns every menu the backend defines.
func (s *RoleService) ListMenus(ctx context.Context) ([]domain.Menu, error) {
	var menus []domain.Menu
	if err := s.do(ctx, http.MethodGet, menusPath, nil, &menus); err != nil {
		return nil, err
	}
	return menus, nil
}

// ListRoles returns all roles without their permissions.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	if err := s.do(ctx, http.MethodGet, rolesPath, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole returns one role with its permission set.
func (s *RoleService) GetRole(ctx context.Context, id int64) (*domain.Role, error) {
	var role domain.Role
	if err := s.do(ctx, http.MethodGet, rolePath(id), nil, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateRole creates a role.
func (s *RoleService) CreateRole(ctx context.Context, input domain.RoleInput) (*domain.Role, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid role: %w", err)
	}
	var role domain.Role
	if err := s.do(ctx, http.MethodPost, rolesPath, input, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole replaces a role's name, description and permissions.
func (s *RoleService) UpdateRole(ctx context.Context, id int64, input domain.RoleInput) (*domain.Role, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid role: %w", err)
	}
	var role domain.Role
	if err := s.do(ctx, http.MethodPut, rolePath(id), input, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// DeleteRole deletes a role.
func (s *RoleService) DeleteRole(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodDelete, rolePath(id), nil, nil)
}

func rolePath(id int64) string {
	return rolesPath + "/" + strconv.FormatInt(id, 10)
}
