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
	"github.com/amishk599/remoteboard/internal/notifier"
	"github.com/amishk599/remoteboard/internal/store"
)

var checkLimit int

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry run: ingest once into memory, print results, exit",
	Long:  "Runs the full pipeline once against an in-memory store and prints the summary and the jobs it would keep. Nothing is written to the configured store and no alert is sent.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkLimit, "limit", "n", 20, "number of kept jobs to print")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)

	logger.Info("check mode: results are kept in memory only")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	if err := syncSources(ctx, cfg, mem, logger); err != nil {
		logger.Error("failed to load sources", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.Ingest.HTTPTimeout}
	orch, err := buildOrchestrator(cfg, mem, pipeline{
		httpClient: httpClient,
		notifier:   notifier.NewLogNotifier(logger),
	}, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	report, err := orch.Run(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
		os.Exit(1)
	}
	fmt.Print(renderReport(report))

	jobs, err := mem.ListJobs(ctx, model.JobQuery{Status: model.StatusActive, Limit: checkLimit})
	if err != nil {
		logger.Error("listing jobs failed", "error", err)
		os.Exit(1)
	}
	if len(jobs) > 0 {
		fmt.Print(renderJobs(jobs))
	}

	logger.Info("check complete", "state", string(report.State))
	return nil
}
