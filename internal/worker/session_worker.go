package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/service"
	"github.com/spec-kit/admin-console/internal/session"
)

// StartSessionWatcher runs the manager's watch loop in the background. The
// returned channel is closed when the loop has exited after ctx is done.
func StartSessionWatcher(ctx context.Context, manager *session.Manager, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := manager.Run(ctx); err != nil {
			logger.Error("session watcher stopped", zap.Error(err))
		}
	}()
	return done
}

// StartAuditWorker registers the audit handlers and returns their unsubscribe func.
func StartAuditWorker(audit *service.AuditService) func() {
	if audit == nil {
		return func() {}
	}
	return audit.RegisterHandlers()
}
