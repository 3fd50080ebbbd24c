package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/api/http/handlers"
	"github.com/spec-kit/admin-console/internal/config"
	"github.com/spec-kit/admin-console/internal/persistence"
	"github.com/spec-kit/admin-console/internal/session"
)

// SessionBackend is an opened durable store for sessions.
type SessionBackend struct {
	KV    session.KV
	Deps  map[string]handlers.Pinger
	close func()
}

// Close releases the backend's connections.
func (b *SessionBackend) Close() {
	if b.close != nil {
		b.close()
	}
}

// OpenSessionBackend connects the backend selected by SESSION_BACKEND.
func OpenSessionBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*SessionBackend, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendMemory:
		logger.Warn("using in-memory session store; sessions do not survive restarts")
		return &SessionBackend{KV: session.NewMemoryKV()}, nil

	case config.SessionBackendRedis:
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		kv := session.NewRedisKV(rdb.Client, cfg.Session.KeyPrefix, cfg.Session.Channel, cfg.Session.TTL())
		return &SessionBackend{
			KV:    kv,
			Deps:  map[string]handlers.Pinger{"redis": rdb},
			close: rdb.Close,
		}, nil

	case config.SessionBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		kv := session.NewPostgresKV(pg.PoolHandle(), cfg.Session.Channel, cfg.Session.TTL())
		return &SessionBackend{
			KV:    kv,
			Deps:  map[string]handlers.Pinger{"postgres": pg},
			close: pg.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}
