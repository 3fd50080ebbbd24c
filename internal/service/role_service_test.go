package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/admin-console/internal/apiclient"
	"github.com/spec-kit/admin-console/internal/domain"
)

func TestRoleService_CRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.SetSession(ctx, "tok-1", nil))

	menus, err := env.roles.ListMenus(ctx)
	require.NoError(t, err)
	assert.Len(t, menus, 2)

	roles, err := env.roles.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	role, err := env.roles.GetRole(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Project Supervisor", role.Name)

	input := domain.RoleInput{
		Name:        "Estimator",
		Description: "Prices bills of materials",
		Permissions: []domain.RolePermission{{MenuID: 1, CanView: true}},
	}
	created, err := env.roles.CreateRole(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.RoleID)
	assert.Equal(t, "Estimator", env.backend.lastBody["name"])

	updated, err := env.roles.UpdateRole(ctx, 4, input)
	require.NoError(t, err)
	assert.Equal(t, int64(4), updated.RoleID)

	require.NoError(t, env.roles.DeleteRole(ctx, 4))

	assert.Equal(t, []string{
		"GET /api/roles/GetAllMenu",
		"GET /api/roles",
		"GET /api/roles/4",
		"POST /api/roles",
		"PUT /api/roles/4",
		"DELETE /api/roles/4",
	}, env.backend.Calls())
}

func TestRoleService_ValidationRejectsBeforeRequest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.roles.CreateRole(context.Background(), domain.RoleInput{
		Permissions: []domain.RolePermission{{MenuID: 0}},
	})
	assert.Error(t, err)
	assert.Empty(t, env.backend.Calls())
}

func TestRoleService_ErrorsPropagateUnchanged(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.roles.GetRole(context.Background(), 404)
	assert.True(t, apiclient.IsStatus(err, http.StatusNotFound))
	assert.ErrorContains(t, err, "role not found")
}

func TestRoleService_UnauthorizedSignsOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.SetSession(ctx, "tok-1", nil))
	env.backend.failPaths["/api/roles"] = http.StatusUnauthorized

	_, err := env.roles.ListRoles(ctx)

	var authzErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authzErr)
	assert.False(t, env.store.IsAuthenticated(ctx))
}
