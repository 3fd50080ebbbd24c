package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/admin-console/internal/devapi"
)

var devapiCmd = &cobra.Command{
	Use:   "devapi",
	Short: "Run the local stand-in backend with seeded accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		srv, err := devapi.New(cfg.DevAPI, nil, logger.Named("devapi"))
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Listen(cfg.DevAPI.Addr()) }()

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
		case err := <-errCh:
			if err != nil {
				logger.Error("dev backend listen", zap.Error(err))
				return err
			}
		}
		return srv.Shutdown()
	},
}
