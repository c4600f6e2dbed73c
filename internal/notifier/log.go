package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/remoteboard/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes run summaries to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each run report via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the run totals, plus one warning per failed source.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(report model.RunReport) error {
	failed := report.FailedSources()
	for _, s := range failed {
		n.logger.Warn("source failed",
			"run_id", report.RunID,
			"source", s.SourceID,
			"source_type", string(s.SourceType),
			"error", s.ErrorMessage,
		)
	}
	level := slog.LevelInfo
	if report.State == model.RunPartiallyFailed {
		level = slog.LevelWarn
	}
	n.logger.Log(context.Background(), level, "run report",
		"run_id", report.RunID,
		"state", string(report.State),
		"sources", len(report.PerSource),
		"failed_sources", len(failed),
		"processed", report.Totals.Processed,
		"expired", report.Expired,
	)
	return nil
}

// Multi fans a report out to several notifiers. Every notifier is tried;
// the first error is returned.
type Multi []model.Notifier

func (m Multi) Notify(report model.RunReport) error {
	var first error
	for _, n := range m {
		if err := n.Notify(report); err != nil && first == nil {
			first = err
		}
	}
	return first
}
