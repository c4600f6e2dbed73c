package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered sources",
	Long:  "Prints the source registry held in the configured store.",
	RunE:  runSourcesList,
}

var sourcesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Register every source from the config file in the store",
	RunE:  runSourcesSync,
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <source-id>",
	Short: "Enable a registered source",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setSourceEnabled(args[0], true) },
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <source-id>",
	Short: "Disable a registered source",
	Long:  "Disables a source in the store. Run start/run with --no-sync to keep the config file from re-enabling it.",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setSourceEnabled(args[0], false) },
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesSyncCmd, sourcesEnableCmd, sourcesDisableCmd)
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	sources, err := st.ListSources(ctx)
	if err != nil {
		logger.Error("listing sources failed", "error", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		fmt.Println("No sources registered. Run `remoteboard sources sync` to load them from the config file.")
		return nil
	}

	fmt.Print(renderSources(sources))
	enabled := 0
	for _, s := range sources {
		if s.Enabled {
			enabled++
		}
	}
	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(sources), enabled, len(sources)-enabled)
	return nil
}

func runSourcesSync(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := syncSources(ctx, cfg, st, logger); err != nil {
		logger.Error("failed to sync sources", "error", err)
		st.Close()
		os.Exit(1)
	}
	logger.Info("sources synced", "count", len(cfg.SourceConfigs))
	return nil
}

func setSourceEnabled(id string, enabled bool) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.SetSourceEnabled(ctx, id, enabled); err != nil {
		logger.Error("updating source failed", "source", id, "error", err)
		st.Close()
		os.Exit(1)
	}
	logger.Info("source updated", "source", id, "enabled", enabled)
	return nil
}
