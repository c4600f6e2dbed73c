package model

import "time"

// SourceStats counts what happened to one source during a run.
type SourceStats struct {
	Found     int `json:"found"`
	Relevant  int `json:"relevant"`
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Add returns the element-wise sum of s and o.
func (s SourceStats) Add(o SourceStats) SourceStats {
	return SourceStats{
		Found:     s.Found + o.Found,
		Relevant:  s.Relevant + o.Relevant,
		Processed: s.Processed + o.Processed,
		Errors:    s.Errors + o.Errors,
	}
}

// FetchResult is what processing one source yields.
type FetchResult struct {
	Stats          SourceStats
	FoundSourceIDs []string // native ids seen upstream, relevant or not
	ErrorMessage   string   // set on a fetch-level failure only
}

// Failed reports a fetch-level failure. Per-posting errors do not count.
func (r FetchResult) Failed() bool {
	return r.ErrorMessage != ""
}

// RunState is the lifecycle of an ingestion run.
type RunState string

const (
	RunIdle            RunState = "idle"
	RunRunning         RunState = "running"
	RunCompleted       RunState = "completed"
	RunPartiallyFailed RunState = "partially_failed"
)

// SourceReport is the per-source line of a run summary.
type SourceReport struct {
	SourceID       string      `json:"source_id"`
	SourceName     string      `json:"source_name"`
	SourceType     SourceType  `json:"source_type"`
	Stats          SourceStats `json:"stats"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	Expired        int         `json:"expired"`
	ReconcileError string      `json:"reconcile_error,omitempty"`
}

// RunReport is the structured summary of one run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	State      RunState       `json:"state"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	PerSource  []SourceReport `json:"per_source"`
	Totals     SourceStats    `json:"totals"`
	Expired    int            `json:"expired"`
}

// FailedSources returns the reports of sources with a fetch-level failure.
func (r RunReport) FailedSources() []SourceReport {
	var out []SourceReport
	for _, s := range r.PerSource {
		if s.ErrorMessage != "" {
			out = append(out, s)
		}
	}
	return out
}

// Notifier delivers a run summary to operators.
type Notifier interface {
	Notify(report RunReport) error
}
