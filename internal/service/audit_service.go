package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/events"
	"github.com/spec-kit/admin-console/internal/session"
)

// AuditService writes an audit trail of session establishments and clears.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	origin     string
}

// NewAuditService creates the service. origin identifies local changes.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, origin string) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		origin:     origin,
	}
}

// RegisterHandlers subscribes to session events.
func (a *AuditService) RegisterHandlers() (unsubscribe func()) {
	if a.dispatcher == nil {
		return func() {}
	}
	return a.dispatcher.Subscribe(events.EventSessionChanged, a.handleSessionChanged)
}

func (a *AuditService) handleSessionChanged(_ context.Context, event events.Event) error {
	change, ok := event.Payload.(session.Change)
	if !ok {
		return nil
	}
	fields := []zap.Field{
		zap.String("namespace", event.Namespace),
		zap.Strings("keys", change.Keys),
		zap.Bool("remote", event.Origin != a.origin),
		zap.Time("at", event.Timestamp),
	}
	if change.Cleared {
		a.logger.Info("session cleared", fields...)
		return nil
	}
	a.logger.Info("session established", fields...)
	return nil
}
