package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ColorsOutofSpace/net-check/internal/config"
	"github.com/ColorsOutofSpace/net-check/internal/observability"
	"github.com/ColorsOutofSpace/net-check/internal/server"
	"github.com/ColorsOutofSpace/net-check/pkg/analysis"
	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diagnostics HTTP API",
	RunE:  runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFile(ctx, cfgFile)
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	logger, err := observability.NewLogger(cfg.Debug || verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	cat := catalog.New()
	manager := jobmanager.New(cat, jobmanager.Config{
		MaxJobs: cfg.Jobs.MaxRetained,
		Logger:  logger.Named("jobs"),
		Metrics: metrics,
	})

	layers, err := loadLayers(cfg.Analysis.LayersFile)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port, server.Deps{
		Manager:      manager,
		Catalog:      cat,
		Layers:       layers,
		AnalysisCfg:  analysis.Config{WarningKeywords: cfg.Analysis.WarningKeywords},
		Logger:       logger.Named("http"),
		Registry:     registry,
		Version:      versionInfo.Version,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadLayers(path string) ([]catalog.Layer, error) {
	if path == "" {
		return catalog.DefaultLayers(), nil
	}
	return catalog.LoadLayers(path)
}
