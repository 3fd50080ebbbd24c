package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/apiclient"
	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/session"
)

// fakeBackend is a scriptable stand-in for the remote REST API.
type fakeBackend struct {
	mu          sync.Mutex
	loginStatus int
	loginBody   map[string]any
	menus       []domain.Menu
	roles       []domain.Role
	details     map[int64]domain.Role
	failPaths   map[string]int
	logoutFail  bool
	calls       []string
	lastBody    map[string]any
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		loginStatus: http.StatusOK,
		loginBody: map[string]any{
			"token": "tok-1", "id": 7, "name": "Dana Builder",
			"email": "dana@example.com", "role": "Project Supervisor", "department": "Field Ops",
		},
		menus: []domain.Menu{{ID: 1, MenuName: "Dashboard"}, {ID: 2, MenuName: "Inventory"}},
		roles: []domain.Role{{RoleID: 4, Name: "project supervisor"}, {RoleID: 1, Name: "Admin"}},
		details: map[int64]domain.Role{
			4: {RoleID: 4, Name: "Project Supervisor", Permissions: []domain.RolePermission{
				{MenuID: 1, CanView: true}, {MenuID: 2, CanView: false},
			}},
		},
		failPaths: map[string]int{},
	}
}

func (f *fakeBackend) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	if r.Body != nil {
		var body map[string]any
		if json.NewDecoder(r.Body).Decode(&body) == nil {
			f.lastBody = body
		}
	}
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if status, ok := f.failPaths[r.URL.Path]; ok {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": "scripted failure"}) //nolint:errcheck
		return
	}

	switch {
	case r.URL.Path == "/api/auth/login":
		w.WriteHeader(f.loginStatus)
		json.NewEncoder(w).Encode(f.loginBody) //nolint:errcheck
	case r.URL.Path == "/auth/logout":
		if f.logoutFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/api/roles/GetAllMenu":
		json.NewEncoder(w).Encode(f.menus) //nolint:errcheck
	case r.URL.Path == "/api/roles" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(f.roles) //nolint:errcheck
	case r.URL.Path == "/api/roles" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Role{RoleID: 9, Name: "created"}) //nolint:errcheck
	case strings.HasPrefix(r.URL.Path, "/api/roles/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/roles/"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPut:
			json.NewEncoder(w).Encode(domain.Role{RoleID: id, Name: "updated"}) //nolint:errcheck
		default:
			role, ok := f.details[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"message": "role not found"}) //nolint:errcheck
				return
			}
			json.NewEncoder(w).Encode(role) //nolint:errcheck
		}
	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	backend *fakeBackend
	server  *httptest.Server
	manager *session.Manager
	store   session.Store
	auth    *AuthService
	roles   *RoleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	manager := session.NewManager(session.NewMemoryKV(), nil, zap.NewNop())
	factory := apiclient.NewFactory(apiclient.Config{BaseURL: srv.URL}, zap.NewNop())
	services := NewProvider(manager, factory, nil, nil, zap.NewNop()).For("browser-1")
	require.NotNil(t, services.Auth)

	return &testEnv{
		backend: backend,
		server:  srv,
		manager: manager,
		store:   services.Store,
		auth:    services.Auth,
		roles:   services.Roles,
	}
}
