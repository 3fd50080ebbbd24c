package devapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/admin-console/internal/apiclient"
	"github.com/spec-kit/admin-console/internal/config"
	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/service"
	"github.com/spec-kit/admin-console/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(config.DevAPIConfig{JWTSecret: "test", TokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}, nil, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func call(t *testing.T, srv *Server, method, path, token, body string) (int, map[string]any, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var obj map[string]any
	_ = json.Unmarshal(raw, &obj)
	return resp.StatusCode, obj, raw
}

func login(t *testing.T, srv *Server, email, password string) string {
	t.Helper()
	status, body, _ := call(t, srv, http.MethodPost, "/api/auth/login", "",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, status)
	return body["token"].(string)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	status, body, _ := call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"supervisor@example.com","password":"build123"}`)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "Project Supervisor", body["role"])
	assert.EqualValues(t, 7, body["id"])

	status, body, _ = call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"supervisor@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid email or password", body["message"])

	status, _, _ = call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProtectedEndpointsNeedToken(t *testing.T) {
	srv := newTestServer(t)

	status, _, _ := call(t, srv, http.MethodGet, "/api/roles/GetAllMenu", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	token := login(t, srv, "guest@example.com", "guest123")
	status, _, raw := call(t, srv, http.MethodGet, "/api/roles/GetAllMenu", token, "")
	require.Equal(t, http.StatusOK, status)
	var menus []domain.Menu
	require.NoError(t, json.Unmarshal(raw, &menus))
	assert.Equal(t, DefaultMenus, menus)
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "admin@example.com", "admin123")

	status, _, _ := call(t, srv, http.MethodPost, "/auth/logout", token, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, body, _ := call(t, srv, http.MethodGet, "/api/projects", token, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token revoked", body["message"])
}

func TestRefreshRotatesToken(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "admin@example.com", "admin123")

	status, body, _ := call(t, srv, http.MethodPost, "/api/auth/refresh", token, "")
	require.Equal(t, http.StatusOK, status)
	fresh := body["token"].(string)
	assert.NotEqual(t, token, fresh)

	status, _, _ = call(t, srv, http.MethodGet, "/api/projects", fresh, "")
	assert.Equal(t, http.StatusOK, status)
	status, _, _ = call(t, srv, http.MethodPost, "/api/auth/refresh", token, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRoleWritesNeedRolesPermission(t *testing.T) {
	srv := newTestServer(t)
	payload := `{"name":"Estimator","permissions":[{"menuId":9,"canView":true}]}`

	supervisor := login(t, srv, "supervisor@example.com", "build123")
	status, _, _ := call(t, srv, http.MethodPost, "/api/roles", supervisor, payload)
	assert.Equal(t, http.StatusForbidden, status)

	admin := login(t, srv, "admin@example.com", "admin123")
	status, body, _ := call(t, srv, http.MethodPost, "/api/roles", admin, payload)
	require.Equal(t, http.StatusCreated, status)
	id := int64(body["roleId"].(float64))

	status, _, _ = call(t, srv, http.MethodPost, "/api/roles", admin, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body, _ = call(t, srv, http.MethodPut, "/api/roles/"+strconv.FormatInt(id, 10), admin, `{"name":"Senior Estimator"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Senior Estimator", body["name"])

	status, _, _ = call(t, srv, http.MethodDelete, "/api/roles/"+strconv.FormatInt(id, 10), admin, "")
	assert.Equal(t, http.StatusNoContent, status)
	status, body, _ = call(t, srv, http.MethodGet, "/api/roles/"+strconv.FormatInt(id, 10), admin, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "role not found", body["message"])
}

func TestAuthServiceAgainstDevBackend(t *testing.T) {
	srv := newTestServer(t)
	backend := httptest.NewServer(adaptor.FiberApp(srv.App()))
	t.Cleanup(backend.Close)

	manager := session.NewManager(session.NewMemoryKV(), nil, zap.NewNop())
	factory := apiclient.NewFactory(apiclient.Config{BaseURL: backend.URL}, zap.NewNop())
	services := service.NewProvider(manager, factory, nil, nil, zap.NewNop()).For("browser-1")
	ctx := context.Background()

	sess, err := services.Auth.Login(ctx, "supervisor@example.com", "build123")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dashboard", "Projects"}, sess.User.AllowedMenuNames)
	assert.Equal(t, "7", sess.User.ID)

	guest, err := service.NewProvider(manager, factory, nil, nil, zap.NewNop()).For("browser-2").Auth.Login(ctx, "guest@example.com", "guest123")
	require.NoError(t, err)
	assert.Empty(t, guest.User.AllowedMenuNames)

	require.NoError(t, srv.RevokeToken(sess.Token))
	_, err = services.Roles.ListMenus(ctx)
	var authzErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authzErr)
	assert.False(t, services.Store.IsAuthenticated(ctx))
}
