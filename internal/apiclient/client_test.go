package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/domain"
	"github.com/spec-kit/admin-console/internal/session"
)

func newStore(t *testing.T, token string) session.Store {
	t.Helper()
	s := session.NewManager(session.NewMemoryKV(), nil, zap.NewNop()).Store("browser-1")
	if token != "" {
		require.NoError(t, s.SetSession(context.Background(), token, &domain.UserProfile{Email: "dana@example.com"}))
	}
	return s
}

func TestClient_AttachesBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]domain.Menu{{ID: 1, MenuName: "Dashboard"}}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewFactory(Config{BaseURL: srv.URL}, zap.NewNop()).For(newStore(t, "tok-1"))

	var menus []domain.Menu
	require.NoError(t, c.Get(context.Background(), "/api/roles/GetAllMenu", &menus))
	assert.Equal(t, []domain.Menu{{ID: 1, MenuName: "Dashboard"}}, menus)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewFactory(Config{BaseURL: srv.URL}, zap.NewNop()).For(newStore(t, ""))
	assert.NoError(t, c.Delete(context.Background(), "/api/roles/3"))
}

func TestClient_BearerOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewFactory(Config{BaseURL: srv.URL}, zap.NewNop()).For(newStore(t, "stale"))
	assert.NoError(t, c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/roles", BearerToken: "fresh"}))
}

func TestClient_UnauthorizedClearsSessionAndRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"}) //nolint:errcheck
	}))
	defer srv.Close()

	var hooked []string
	f := NewFactory(Config{BaseURL: srv.URL}, zap.NewNop(), WithUnauthorizedHandler(func(_ context.Context, s session.Store) {
		hooked = append(hooked, s.Namespace())
	}))
	store := newStore(t, "tok-1")

	err := f.For(store).Get(context.Background(), "/api/projects", nil)

	var authzErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authzErr)
	assert.Equal(t, "token expired", authzErr.Message)
	assert.False(t, store.IsAuthenticated(context.Background()))
	assert.Equal(t, []string{"browser-1"}, hooked)
}

func TestClient_UnauthorizedClearsEvenWhenContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newStore(t, "tok-1")
	c := NewFactory(Config{BaseURL: srv.URL}, zap.NewNop()).For(store)

	ctx, cancel := context.WithCancel(context.Background())
	err := c.unauthorized(ctx, "/api/projects", "")
	cancel()

	assert.Error(t, err)
	assert.False(t, store.IsAuthenticated(context.Background()))
}

func TestClient_SkipUnauthorizedHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "bad credentials"}) //nolint:errcheck
	}))
	defer srv.Close()

	hooked := false
	f := NewFactory(Config{BaseURL: srv.URL}, zap.NewNop(), WithUnauthorizedHandler(func(context.Context, session.Store) {
		hooked = true
	}))
	store := newStore(t, "tok-1")

	err := f.For(store).Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/auth/login", SkipUnauthorizedHook: true})

	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.ErrorContains(t, err, "bad credentials")
	assert.False(t, hooked)
	assert.True(t, store.IsAuthenticated(context.Background()))
}

func TestClient_HTTPErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "role name taken"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewFactory(Config{BaseURL: srv.URL}, zap.NewNop()).For(newStore(t, "tok"))
	err := c.Post(context.Background(), "/api/roles", map[string]string{"name": "Admin"}, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.StatusCode)
	assert.Equal(t, "role name taken", httpErr.Message)
}

func TestClient_NetworkErrorLeavesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	store := newStore(t, "tok")
	c := NewFactory(Config{BaseURL: url, Timeout: time.Second}, zap.NewNop()).For(store)
	err := c.Get(context.Background(), "/api/roles", nil)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, store.IsAuthenticated(context.Background()))
}

func TestClient_RefreshIsSingleFlight(t *testing.T) {
	var refreshes atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshes.Add(1)
			<-release
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-2"}) //nolint:errcheck
		case "/api/projects":
			if r.Header.Get("Authorization") != "Bearer tok-2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode([]string{"Tower A"}) //nolint:errcheck
		}
	}))
	defer srv.Close()

	store := newStore(t, "tok-1")
	f := NewFactory(Config{BaseURL: srv.URL, RefreshPath: "/api/auth/refresh"}, zap.NewNop())

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out []string
			errs[i] = f.For(store).Get(context.Background(), "/api/projects", &out)
		}(i)
	}

	assert.Eventually(t, func() bool { return refreshes.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), refreshes.Load())
	token, _ := store.Token(context.Background())
	assert.Equal(t, "tok-2", token)
	user, err := store.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
}

func TestClient_RefreshFailureRejectsAllCallers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newStore(t, "tok-1")
	f := NewFactory(Config{BaseURL: srv.URL, RefreshPath: "/api/auth/refresh"}, zap.NewNop())

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.For(store).Get(context.Background(), "/api/projects", nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		var authzErr *domain.AuthorizationError
		assert.True(t, errors.As(err, &authzErr))
	}
	assert.False(t, store.IsAuthenticated(context.Background()))
}

func TestClient_RefreshDroppedWhenSessionClearedMeanwhile(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			close(started)
			<-release
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-2"}) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	store := newStore(t, "tok-1")
	f := NewFactory(Config{BaseURL: srv.URL, RefreshPath: "/api/auth/refresh"}, zap.NewNop())

	errCh := make(chan error, 1)
	go func() { errCh <- f.For(store).Get(context.Background(), "/api/projects", nil) }()

	<-started
	require.NoError(t, store.Clear(context.Background()))
	close(release)

	err := <-errCh
	var authzErr *domain.AuthorizationError
	assert.ErrorAs(t, err, &authzErr)
	assert.False(t, store.IsAuthenticated(context.Background()))
	user, err := store.User(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestClient_RefreshSurvivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			close(started)
			<-release
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-2"}) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	store := newStore(t, "tok-1")
	f := NewFactory(Config{BaseURL: srv.URL, RefreshPath: "/api/auth/refresh"}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.For(store).Get(ctx, "/api/projects", nil) }()

	<-started
	cancel()
	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, store.IsAuthenticated(context.Background()))

	close(release)
	assert.Eventually(t, func() bool {
		token, _ := store.Token(context.Background())
		return token == "tok-2"
	}, time.Second, 5*time.Millisecond)
	user, err := store.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
}
