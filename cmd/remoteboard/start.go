package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/remoteboard/internal/metrics"
	"github.com/amishk599/remoteboard/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingestion daemon",
	Long:  "Start the scheduler daemon and the metrics endpoint; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	logger.Info("config loaded",
		"schedule", cfg.Schedule,
		"sources", len(cfg.SourceConfigs),
		"storage", cfg.Storage.Driver,
		"concurrency", cfg.Ingest.Concurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if !noSync {
		if err := syncSources(ctx, cfg, st, logger); err != nil {
			logger.Error("failed to sync sources", "error", err)
			os.Exit(1)
		}
	}

	recorder, err := metrics.NewRecorder(nil)
	if err != nil {
		logger.Error("failed to set up metrics", "error", err)
		os.Exit(1)
	}
	if cfg.Metrics.ListenAddr != "" {
		srv := recorder.Serve(cfg.Metrics.ListenAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	httpClient := &http.Client{Timeout: cfg.Ingest.HTTPTimeout}
	orch, err := buildOrchestrator(cfg, st, pipeline{
		httpClient: httpClient,
		notifier:   setupNotifier(cfg, httpClient, logger),
		recorder:   recorder,
	}, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.NewScheduler(orch, cfg.Schedule, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}
	if cfg.Storage.Retention > 0 {
		sched.SchedulePurge(st, cfg.Storage.Retention)
	}

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
