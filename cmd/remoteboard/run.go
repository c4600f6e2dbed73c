package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/remoteboard/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass and exit",
	Long:  "Runs a single ingestion across all enabled sources, prints the run summary and exits non-zero if any source failed.",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

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

	httpClient := &http.Client{Timeout: cfg.Ingest.HTTPTimeout}
	orch, err := buildOrchestrator(cfg, st, pipeline{
		httpClient: httpClient,
		notifier:   setupNotifier(cfg, httpClient, logger),
	}, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	report, err := orch.Run(ctx)
	if err != nil {
		logger.Error("ingestion run failed", "error", err)
		os.Exit(1)
	}

	fmt.Print(renderReport(report))
	if report.State == model.RunPartiallyFailed {
		st.Close()
		os.Exit(1)
	}
	return nil
}
