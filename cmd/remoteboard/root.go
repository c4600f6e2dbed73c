package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/remoteboard/internal/adapter"
	"github.com/amishk599/remoteboard/internal/config"
	"github.com/amishk599/remoteboard/internal/filter"
	"github.com/amishk599/remoteboard/internal/model"
	"github.com/amishk599/remoteboard/internal/normalize"
	"github.com/amishk599/remoteboard/internal/notifier"
	"github.com/amishk599/remoteboard/internal/orchestrator"
	"github.com/amishk599/remoteboard/internal/poller"
	"github.com/amishk599/remoteboard/internal/ratelimit"
	"github.com/amishk599/remoteboard/internal/retry"
	"github.com/amishk599/remoteboard/internal/store"
)

var (
	cfgPath string
	debug   bool
	noSync  bool
)

var rootCmd = &cobra.Command{
	Use:   "remoteboard",
	Short: "Remote job board ingester",
	Long:  "remoteboard pulls postings from Greenhouse, Lever and Ashby boards, keeps the remote-friendly ones and reconciles them into the job store.",
	// Default to `start` so that `remoteboard` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: REMOTEBOARD_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noSync, "no-sync", false, "do not register config sources in the store before running")
}

// loadConfig resolves the config path and parses it.
// Priority: --config flag > REMOTEBOARD_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

// mustLoadConfig loads the config or exits with the error logged.
func mustLoadConfig(logger *slog.Logger) *config.Config {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	logNotifier := notifier.NewLogNotifier(logger)
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier", "notify_on", cfg.Notification.NotifyOn)
		return notifier.Multi{
			logNotifier,
			notifier.NewSlackNotifier(cfg.Notification.WebhookURL, cfg.Notification.NotifyOn, httpClient, logger),
		}
	default:
		return logNotifier
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Driver, err)
	}
	return st, nil
}

// buildFetchers returns one fetcher per supported ATS. Every fetcher retries
// transient errors and waits on the shared per-ATS limiter before each attempt.
func buildFetchers(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []model.SourceFetcher {
	limiter := ratelimit.NewATSRateLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.Overrides())
	logger.Debug("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	base := []model.SourceFetcher{
		adapter.NewGreenhouseAdapter(httpClient),
		adapter.NewLeverAdapter(httpClient).WithPacer(limiter),
		adapter.NewAshbyAdapter(httpClient),
	}
	fetchers := make([]model.SourceFetcher, 0, len(base))
	for _, f := range base {
		limited := ratelimit.NewFetcher(f, limiter)
		fetchers = append(fetchers, retry.NewFetcher(limited, cfg.Ingest.Retries, cfg.Ingest.RetryBaseDelay, logger))
	}
	return fetchers
}

// pipeline bundles what a run needs besides the store.
type pipeline struct {
	httpClient *http.Client
	notifier   model.Notifier
	recorder   orchestrator.RunRecorder
}

func buildOrchestrator(cfg *config.Config, st store.Store, p pipeline, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	classifier, err := filter.NewRelevanceClassifier(
		cfg.Relevance.RemoteKeywords,
		cfg.Relevance.TargetRegions,
		cfg.Relevance.RestrictivePatterns,
	)
	if err != nil {
		return nil, fmt.Errorf("building relevance classifier: %w", err)
	}

	sourcePoller := poller.NewSourcePoller(
		buildFetchers(cfg, p.httpClient, logger),
		classifier,
		normalize.New(st, logger),
		logger,
	)
	for _, src := range cfg.Sources() {
		if src.Enabled && !sourcePoller.Supports(src.Type) {
			logger.Warn("no fetcher for source type, runs will report it as failed",
				"source", src.ID, "source_type", string(src.Type))
		}
	}
	return orchestrator.New(st, st, sourcePoller, orchestrator.Options{
		Concurrency:   cfg.Ingest.Concurrency,
		SourceTimeout: cfg.Ingest.SourceTimeout,
		Notifier:      p.notifier,
		Recorder:      p.recorder,
	}, logger), nil
}

// syncSources registers every configured source; the YAML is the source of truth.
func syncSources(ctx context.Context, cfg *config.Config, st model.SourceAdmin, logger *slog.Logger) error {
	for _, src := range cfg.Sources() {
		if err := st.RegisterSource(ctx, src); err != nil {
			return fmt.Errorf("registering source %s: %w", src.ID, err)
		}
		logger.Debug("registered source", "source", src.ID, "source_type", string(src.Type), "enabled", src.Enabled)
	}
	return nil
}
