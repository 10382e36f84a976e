package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/leadscore/internal/app"
	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

func newServeCmd(overrides app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scoring service",
		Long: "Serve accepts batch submissions on POST /submitAsyncActionService and scores\n" +
			"them in the background. SIGINT or SIGTERM drains running batches before exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cliCtx, overrides)
		},
	}
}

func runServe(ctx context.Context, cliCtx *CLIContext, overrides app.Options) error {
	cfg, logger := cliCtx.Config, cliCtx.Logger

	a, err := app.New(cfg, logger, overrides)
	if err != nil {
		return err
	}
	defer a.Close()

	if cliCtx.ConfigPath != "" {
		level := cfg.Log.Level
		err := config.Watch(cliCtx.ConfigPath,
			func(next *config.Config) {
				if next.Log.Level != level {
					logger.Info("log level changed", logging.String("from", level), logging.String("to", next.Log.Level))
					logger.SetLevel(next.Log.Level)
					level = next.Log.Level
				}
			},
			func(err error) {
				logger.Warn("config reload rejected", logging.Err(err))
			},
		)
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	logger.Info("starting leadscore",
		logging.String("version", Version),
		logging.Int("http_port", cfg.Server.Port),
		logging.Bool("grpc", cfg.GRPC.Enabled),
	)
	if err := a.Run(ctx, Version); err != nil {
		logger.Error("server stopped with error", logging.Err(err))
		return err
	}
	logger.Info("leadscore stopped")
	return nil
}

//Personal.AI order the ending
