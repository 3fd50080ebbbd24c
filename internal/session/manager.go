package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/events"
)

// Manager hands out namespace-scoped stores over one KV backend and bridges
// backend notifications into the local event dispatcher.
type Manager struct {
	kv         KV
	dispatcher events.Dispatcher
	origin     string
	logger     *zap.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewManager wires a manager. Each manager gets its own origin id so it can
// tell its own broadcasts from those of other instances.
func NewManager(kv KV, dispatcher events.Dispatcher, logger *zap.Logger) *Manager {
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &Manager{
		kv:         kv,
		dispatcher: dispatcher,
		origin:     uuid.NewString(),
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Store returns the session of one namespace.
func (m *Manager) Store(namespace string) Store {
	return &store{namespace: namespace, manager: m}
}

// Origin identifies this manager in broadcast changes.
func (m *Manager) Origin() string { return m.origin }

// Dispatcher exposes the local event bus.
func (m *Manager) Dispatcher() events.Dispatcher { return m.dispatcher }

// Ping checks the backend.
func (m *Manager) Ping(ctx context.Context) error { return m.kv.Ping(ctx) }

// Ready is closed once the watch loop is subscribed.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// Run watches the backend for changes made by other managers until ctx is
// done, re-subscribing after failures.
func (m *Manager) Run(ctx context.Context) error {
	backoff := 500 * time.Millisecond
	for {
		err := m.kv.Watch(ctx, m.markReady, m.receive)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrWatchUnsupported) {
			m.markReady()
			m.logger.Warn("session backend cannot watch; cross-instance notifications disabled")
			<-ctx.Done()
			return nil
		}
		m.logger.Warn("session watch stopped; retrying", zap.Error(err), zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}

func (m *Manager) markReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

func (m *Manager) receive(change Change) {
	if change.Origin == m.origin {
		return
	}
	m.publish(context.Background(), change)
}

// announce delivers a change locally and to every other manager.
func (m *Manager) announce(ctx context.Context, change Change) {
	change.Origin = m.origin
	m.publish(ctx, change)
	if err := m.kv.Notify(context.WithoutCancel(ctx), change); err != nil {
		m.logger.Warn("session change broadcast failed",
			zap.String("namespace", change.Namespace),
			zap.Error(err))
	}
}

func (m *Manager) publish(ctx context.Context, change Change) {
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSessionChanged,
		Namespace: change.Namespace,
		Origin:    change.Origin,
		Timestamp: time.Now(),
		Payload:   change,
	}
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Debug("session change handler failed", zap.Error(err))
	}
}

func (m *Manager) subscribe(namespace string, fn func(Change)) func() {
	return m.dispatcher.Subscribe(events.EventSessionChanged, func(_ context.Context, event events.Event) error {
		if event.Namespace != namespace {
			return nil
		}
		if change, ok := event.Payload.(Change); ok {
			fn(change)
		}
		return nil
	})
}
