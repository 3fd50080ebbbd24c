package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin-console", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, SessionBackendMemory, cfg.Session.Backend)
	assert.Equal(t, "console_sid", cfg.Session.CookieName)
	assert.Equal(t, "/login", cfg.Guard.LoginPath)
	assert.Equal(t, "/access-denied", cfg.Guard.AccessDeniedPath)
	assert.Equal(t, "allow", cfg.Guard.EmptyPermissions)
	assert.Empty(t, cfg.Backend.RefreshPath)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com/")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("GUARD_EMPTY_PERMISSIONS", "deny")
	t.Setenv("BACKEND_REFRESH_PATH", "/api/auth/refresh")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, SessionBackendRedis, cfg.Session.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL())
	assert.Equal(t, "deny", cfg.Guard.EmptyPermissions)
	assert.Equal(t, "/api/auth/refresh", cfg.Backend.RefreshPath)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"SESSION_BACKEND": "etcd"}},
		{name: "postgres without dsn", env: map[string]string{"SESSION_BACKEND": "postgres"}},
		{name: "bad policy", env: map[string]string{"GUARD_EMPTY_PERMISSIONS": "maybe"}},
		{name: "bad redis db", env: map[string]string{"REDIS_DB": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
