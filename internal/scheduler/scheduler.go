package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/remoteboard/internal/model"
	"github.com/amishk599/remoteboard/internal/orchestrator"
)

// Runner executes one ingestion run.
type Runner interface {
	Run(ctx context.Context) (model.RunReport, error)
}

// Purger deletes expired jobs older than a cutoff.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type purgeJob struct {
	purger    Purger
	retention time.Duration
	schedule  cron.Schedule
}

// Scheduler owns the main loop: it runs one ingestion immediately, then on
// every tick of a cron schedule. Overlapping ticks are skipped.
type Scheduler struct {
	runner   Runner
	spec     string
	schedule cron.Schedule
	purges   []purgeJob
	logger   *slog.Logger
}

// NewScheduler parses spec (standard 5-field cron, or descriptors such as
// "@hourly" and "@every 30m") and returns a scheduler for runner.
func NewScheduler(runner Runner, spec string, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{
		runner:   runner,
		spec:     spec,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// SchedulePurge adds a daily job deleting expired jobs older than retention.
func (s *Scheduler) SchedulePurge(p Purger, retention time.Duration) {
	schedule, _ := cron.ParseStandard("@daily")
	s.purges = append(s.purges, purgeJob{purger: p, retention: retention, schedule: schedule})
}

// Run starts the scheduling loop. It returns nil when ctx is cancelled
// (graceful shutdown), after in-flight jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "schedule", s.spec)

	s.runOnce(ctx)
	if ctx.Err() != nil {
		return nil
	}

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))
	for _, p := range s.purges {
		c.Schedule(p.schedule, cron.FuncJob(func() { s.purge(ctx, p) }))
	}
	c.Start()

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		if errors.Is(err, orchestrator.ErrRunInProgress) {
			s.logger.Warn("skipping tick, run still in progress")
			return
		}
		s.logger.Error("ingestion run failed", "error", err)
	}
}

func (s *Scheduler) purge(ctx context.Context, p purgeJob) {
	cutoff := time.Now().Add(-p.retention)
	n, err := p.purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error("purging expired jobs failed", "error", err)
		return
	}
	s.logger.Info("purged expired jobs", "count", n, "cutoff", cutoff)
}

// cronLogger routes cron's own messages into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
