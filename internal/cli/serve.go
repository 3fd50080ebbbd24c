package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/app"
	"github.com/spec-kit/admin-console/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		backend, err := app.OpenSessionBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		console, err := app.NewConsole(app.Options{
			Config:  cfg,
			Logger:  logger,
			Metrics: observability.NewMetrics(),
			KV:      backend.KV,
			Deps:    backend.Deps,
		})
		if err != nil {
			return err
		}
		console.Start(ctx)

		errCh := make(chan error, 1)
		go func() { errCh <- console.Listen() }()

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
		case err := <-errCh:
			if err != nil {
				logger.Error("console listen", zap.Error(err))
			}
		}
		return console.Close()
	},
}
