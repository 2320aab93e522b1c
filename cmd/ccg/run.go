package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ccg-hq/gateway/pkg/api"
	"ccg-hq/gateway/pkg/config"
	"ccg-hq/gateway/pkg/gateway"
	"ccg-hq/gateway/pkg/metrics"
	"ccg-hq/gateway/pkg/server"
	"ccg-hq/gateway/pkg/store"
	"ccg-hq/gateway/pkg/telemetry"
)

var runFlags struct {
	listenHost string
	listenPort int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The gateway listens on the configured address (default 127.0.0.1:7788) and
proxies any request that is not a health, metrics, or operator API call to
the selected upstream provider.

Examples:
  # Start with defaults
  ccg run

  # Start with a config file
  ccg run --config ~/.ccg-gateway/config.yaml

  # Override the listen address
  ccg run --host 0.0.0.0 --port 8788`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.listenHost, "host", "", "override listen host")
	runCmd.Flags().IntVar(&runFlags.listenPort, "port", 0, "override listen port")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenHost != "" {
		cfg.Server.Host = runFlags.listenHost
	}
	if runFlags.listenPort != 0 {
		cfg.Server.Port = runFlags.listenPort
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(cfg.Logging.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Database.StorePath())
	if err != nil {
		return fmt.Errorf("failed to open configuration store: %w", err)
	}
	defer st.Close()

	tel, err := telemetry.Open(cfg.Database.TelemetryPath())
	if err != nil {
		return fmt.Errorf("failed to open telemetry store: %w", err)
	}
	defer tel.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pruner := telemetry.NewPruner(tel, telemetry.RetentionPolicy{
		Days:           cfg.Retention.Days,
		MaxRequestLogs: cfg.Retention.MaxRequestLogs,
		Schedule:       cfg.Retention.Schedule,
	})
	if err := pruner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention pruner: %w", err)
	}

	// Retune the log level live when the config file changes.
	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile)
		if err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		} else {
			go func() {
				_ = watcher.Watch(ctx, func(updated *config.Config) {
					levelVar.Set(updated.Logging.SlogLevel())
				})
			}()
		}
	}

	registry := prometheus.NewRegistry()
	rm := metrics.NewRequestMetrics(registry)

	proxyHandler := gateway.NewHandler(st, tel, rm)
	operatorAPI := api.New(st, tel)
	srv := server.NewServer(cfg.Server, proxyHandler, operatorAPI, registry)

	if err := tel.RecordEvent(ctx, "info", telemetry.EventGatewayStarted,
		fmt.Sprintf("Gateway started on %s", cfg.Server.ListenAddress()), "", ""); err != nil {
		slog.Warn("failed to record startup event", "error", err)
	}

	return srv.Start(ctx)
}
