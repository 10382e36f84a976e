// Command apiserver runs the scoring service alone. It is the container
// entry point; operators use cmd/leadscore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/leadscore/internal/app"
	"github.com/turtacn/leadscore/internal/config"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("LEADSCORE_CONFIG"), "path to configuration file (empty: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort, *grpcPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort, grpcPort int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}
	if grpcPort > 0 {
		cfg.GRPC.Port = grpcPort
	}

	logCfg := logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Log.Output != "" {
		logCfg.OutputPaths = []string{cfg.Log.Output}
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting apiserver",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.Bool("grpc", cfg.GRPC.Enabled),
		logging.Int("grpc_port", cfg.GRPC.Port),
	)
	return a.Run(ctx, version)
}

//Personal.AI order the ending
