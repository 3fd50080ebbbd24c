package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresKV stores sessions in console_session_entries and broadcasts
// changes with NOTIFY on a channel every console instance LISTENs to.
type PostgresKV struct {
	db      querier
	pool    *pgxpool.Pool
	channel string
	ttl     time.Duration
}

// NewPostgresKV builds a backend on a pool. ttl <= 0 disables expiry.
func NewPostgresKV(pool *pgxpool.Pool, channel string, ttl time.Duration) *PostgresKV {
	return &PostgresKV{db: pool, pool: pool, channel: channel, ttl: ttl}
}

func (p *PostgresKV) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	const query = `
        SELECT value FROM console_session_entries
        WHERE namespace=$1 AND key=$2 AND (expires_at IS NULL OR expires_at > NOW())`

	var val string
	if err := p.db.QueryRow(ctx, query, namespace, key).Scan(&val); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return val, true, nil
}

func (p *PostgresKV) Put(ctx context.Context, namespace string, values map[string]string) error {
	const query = `
        INSERT INTO console_session_entries (namespace, key, value, expires_at, updated_at)
        VALUES ($1, $2, $3, CASE WHEN $4::bigint > 0 THEN NOW() + $4::bigint * INTERVAL '1 second' END, NOW())
        ON CONFLICT (namespace, key)
        DO UPDATE SET value=EXCLUDED.value, expires_at=EXCLUDED.expires_at, updated_at=NOW()`

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ttlSeconds := int64(p.ttl / time.Second)
	for _, k := range keys {
		if _, err := p.db.Exec(ctx, query, namespace, k, values[k], ttlSeconds); err != nil {
			return fmt.Errorf("postgres put %s: %w", k, err)
		}
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const query = `
        DELETE FROM console_session_entries
        WHERE namespace=$1 AND key = ANY($2)`
	if _, err := p.db.Exec(ctx, query, namespace, keys); err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

func (p *PostgresKV) Notify(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, string(payload)); err != nil {
		return fmt.Errorf("postgres notify: %w", err)
	}
	return nil
}

// Watch holds one pooled connection in LISTEN mode until ctx is done.
func (p *PostgresKV) Watch(ctx context.Context, ready func(), fn func(Change)) error {
	if p.pool == nil {
		return ErrWatchUnsupported
	}
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{p.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", p.channel, err)
	}
	if ready != nil {
		ready()
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		var change Change
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			continue
		}
		fn(change)
	}
}

func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
