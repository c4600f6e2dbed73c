package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/remoteboard/internal/model"
)

var (
	jobsStatus string
	jobsSkill  string
	jobsSource string
	jobsLimit  int

	purgeOlderThan time.Duration
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List stored jobs",
	Long:  "Lists stored jobs, newest first, filtered by status, skill or source.",
	RunE:  runJobsList,
}

var jobsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired jobs past the retention window",
	RunE:  runJobsPurge,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", string(model.StatusActive), "job status (ACTIVE, EXPIRED, REJECTED, PENDING_REVIEW); empty for all")
	jobsCmd.Flags().StringVar(&jobsSkill, "skill", "", "only jobs requiring this skill")
	jobsCmd.Flags().StringVar(&jobsSource, "source", "", "only jobs from this source id")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 50, "maximum number of jobs to print")
	jobsPurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "purge jobs expired longer ago than this (default: storage.retention)")

	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsPurgeCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	jobs, err := st.ListJobs(ctx, model.JobQuery{
		Status:   model.JobStatus(strings.ToUpper(jobsStatus)),
		SourceID: jobsSource,
		Skill:    jobsSkill,
		Limit:    jobsLimit,
	})
	if err != nil {
		logger.Error("listing jobs failed", "error", err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}
	fmt.Print(renderJobs(jobs))
	fmt.Printf("\n%d jobs\n", len(jobs))
	return nil
}

func runJobsPurge(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	cfg := mustLoadConfig(logger)
	ctx := context.Background()

	retention := purgeOlderThan
	if retention <= 0 {
		retention = cfg.Storage.Retention
	}
	if retention <= 0 {
		logger.Error("no retention configured; pass --older-than")
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	cutoff := time.Now().Add(-retention)
	n, err := st.PurgeExpired(ctx, cutoff)
	if err != nil {
		logger.Error("purge failed", "error", err)
		st.Close()
		os.Exit(1)
	}
	logger.Info("purged expired jobs", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	return nil
}
