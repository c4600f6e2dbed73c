package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/remoteboard/internal/model"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

const (
	DefaultConcurrency   = 4
	DefaultSourceTimeout = 5 * time.Minute
)

// SourceProcessor runs the fetch-classify-normalize pipeline for one source.
type SourceProcessor interface {
	ProcessSource(ctx context.Context, src model.Source) model.FetchResult
}

// Reconciler expires jobs that disappeared upstream.
type Reconciler interface {
	ExpireJobsNotIn(ctx context.Context, sourceID string, foundIDs []string, at time.Time) (int, error)
}

// RunRecorder receives every finished run report, e.g. for metrics.
type RunRecorder interface {
	RecordRun(report model.RunReport)
}

// Options tunes a run. Zero values fall back to the defaults.
type Options struct {
	Concurrency   int
	SourceTimeout time.Duration
	Notifier      model.Notifier
	Recorder      RunRecorder
}

// Orchestrator drives one ingestion run across all enabled sources.
type Orchestrator struct {
	registry model.SourceRegistry
	jobs     Reconciler
	poller   SourceProcessor
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	state model.RunState
}

// New creates an idle orchestrator.
func New(registry model.SourceRegistry, jobs Reconciler, poller SourceProcessor, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	return &Orchestrator{
		registry: registry,
		jobs:     jobs,
		poller:   poller,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		state:    model.RunIdle,
	}
}

// State returns the state of the current or last run.
func (o *Orchestrator) State() model.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes one ingestion run. Source failures do not fail the run; they
// are reported per source and turn the state into PartiallyFailed. An error
// is returned only when the run could not start.
func (o *Orchestrator) Run(ctx context.Context) (model.RunReport, error) {
	o.mu.Lock()
	if o.state == model.RunRunning {
		o.mu.Unlock()
		return model.RunReport{}, ErrRunInProgress
	}
	o.state = model.RunRunning
	o.mu.Unlock()

	report := model.RunReport{
		RunID:     uuid.NewString(),
		State:     model.RunRunning,
		StartedAt: o.now(),
	}
	log := o.logger.With("run_id", report.RunID)

	sources, err := o.registry.ListEnabledSources(ctx)
	if err != nil {
		o.setState(model.RunIdle)
		return report, fmt.Errorf("listing enabled sources: %w", err)
	}
	log.Info("starting ingestion run", "sources", len(sources), "concurrency", o.opts.Concurrency)

	results := make([]model.FetchResult, len(sources))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = o.processSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	report.PerSource = make([]model.SourceReport, len(sources))
	for i, src := range sources {
		report.PerSource[i] = model.SourceReport{
			SourceID:     src.ID,
			SourceName:   src.Name,
			SourceType:   src.Type,
			Stats:        results[i].Stats,
			ErrorMessage: results[i].ErrorMessage,
		}
	}
	report.Totals = lo.Reduce(report.PerSource, func(acc model.SourceStats, s model.SourceReport, _ int) model.SourceStats {
		return acc.Add(s.Stats)
	}, model.SourceStats{})

	// Sources that finished cleanly have a complete upstream view even when
	// the run was cancelled afterwards.
	o.reconcile(context.WithoutCancel(ctx), &report, results, log)

	report.State = model.RunCompleted
	if len(report.FailedSources()) > 0 {
		report.State = model.RunPartiallyFailed
	}
	report.FinishedAt = o.now()
	o.setState(report.State)

	o.logSummary(log, report)
	if o.opts.Recorder != nil {
		o.opts.Recorder.RecordRun(report)
	}
	if o.opts.Notifier != nil {
		if err := o.opts.Notifier.Notify(report); err != nil {
			log.Error("notification failed", "error", err)
		}
	}
	return report, nil
}

// processSource bounds a single source by the per-source timeout and keeps a
// panicking fetcher from taking the run down.
func (o *Orchestrator) processSource(ctx context.Context, src model.Source) (res model.FetchResult) {
	if ctx.Err() != nil {
		return model.FetchResult{Stats: model.SourceStats{Errors: 1}, ErrorMessage: "cancelled"}
	}

	sctx, cancel := context.WithTimeout(ctx, o.opts.SourceTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("source panicked", "source", src.ID, "panic", r)
			res = model.FetchResult{
				Stats:        model.SourceStats{Errors: 1},
				ErrorMessage: fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return o.poller.ProcessSource(sctx, src)
}

func (o *Orchestrator) reconcile(ctx context.Context, report *model.RunReport, results []model.FetchResult, log *slog.Logger) {
	for i := range report.PerSource {
		entry := &report.PerSource[i]
		if results[i].Failed() {
			log.Warn("skipping reconciliation", "source", entry.SourceID, "error", entry.ErrorMessage)
			continue
		}

		at := o.now()
		expired, err := o.jobs.ExpireJobsNotIn(ctx, entry.SourceID, results[i].FoundSourceIDs, at)
		if err != nil {
			entry.ReconcileError = err.Error()
			log.Error("reconciliation failed", "source", entry.SourceID, "error", err)
			continue
		}
		entry.Expired = expired
		report.Expired += expired

		if err := o.registry.MarkFetched(ctx, entry.SourceID, at); err != nil {
			entry.ReconcileError = err.Error()
			log.Error("marking source fetched failed", "source", entry.SourceID, "error", err)
			continue
		}
		if expired > 0 {
			log.Info("expired jobs", "source", entry.SourceID, "count", expired)
		}
	}
}

func (o *Orchestrator) logSummary(log *slog.Logger, report model.RunReport) {
	for _, s := range report.PerSource {
		args := []any{
			"source", s.SourceID,
			"source_type", string(s.SourceType),
			"found", s.Stats.Found,
			"relevant", s.Stats.Relevant,
			"processed", s.Stats.Processed,
			"errors", s.Stats.Errors,
			"expired", s.Expired,
		}
		if s.ErrorMessage != "" {
			args = append(args, "error", s.ErrorMessage)
		}
		if s.ReconcileError != "" {
			args = append(args, "reconcile_error", s.ReconcileError)
		}
		log.Info("source summary", args...)
	}
	log.Info("ingestion run finished",
		"state", string(report.State),
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		"found", report.Totals.Found,
		"relevant", report.Totals.Relevant,
		"processed", report.Totals.Processed,
		"errors", report.Totals.Errors,
		"expired", report.Expired,
	)
}

func (o *Orchestrator) setState(s model.RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
