package metrics

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/remoteboard/internal/model"
)

// Recorder holds the ingestion collectors.
type Recorder struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	LastRunTime     prometheus.Gauge
	PostingsTotal   *prometheus.CounterVec
	SourceFailures  *prometheus.CounterVec
	JobsExpired     prometheus.Counter
	ReconcileErrors prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewRecorder creates the collectors and registers them with reg.
// A nil reg uses a fresh private registry.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remoteboard_runs_total",
				Help: "Total number of ingestion runs by final state.",
			},
			[]string{"state"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "remoteboard_run_duration_seconds",
				Help:    "Duration of each ingestion run in seconds.",
				Buckets: []float64{5, 15, 60, 300, 900, 1800},
			},
		),
		LastRunTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "remoteboard_last_run_timestamp_seconds",
				Help: "Unix time the last ingestion run finished.",
			},
		),
		PostingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remoteboard_postings_total",
				Help: "Postings seen per source and outcome (found, relevant, processed, errors).",
			},
			[]string{"source", "outcome"},
		),
		SourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remoteboard_source_failures_total",
				Help: "Fetch-level failures per source.",
			},
			[]string{"source"},
		),
		JobsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "remoteboard_jobs_expired_total",
				Help: "Total number of jobs transitioned to EXPIRED by reconciliation.",
			},
		),
		ReconcileErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "remoteboard_reconcile_errors_total",
				Help: "Total number of failed per-source reconciliations.",
			},
		),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		r.RunsTotal, r.RunDuration, r.LastRunTime, r.PostingsTotal,
		r.SourceFailures, r.JobsExpired, r.ReconcileErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}
	return r, nil
}

// RecordRun folds a finished run report into the collectors.
func (r *Recorder) RecordRun(report model.RunReport) {
	r.RunsTotal.WithLabelValues(string(report.State)).Inc()
	if !report.FinishedAt.IsZero() {
		r.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		r.LastRunTime.Set(float64(report.FinishedAt.Unix()))
	}
	for _, s := range report.PerSource {
		r.PostingsTotal.WithLabelValues(s.SourceID, "found").Add(float64(s.Stats.Found))
		r.PostingsTotal.WithLabelValues(s.SourceID, "relevant").Add(float64(s.Stats.Relevant))
		r.PostingsTotal.WithLabelValues(s.SourceID, "processed").Add(float64(s.Stats.Processed))
		r.PostingsTotal.WithLabelValues(s.SourceID, "errors").Add(float64(s.Stats.Errors))
		if s.ErrorMessage != "" {
			r.SourceFailures.WithLabelValues(s.SourceID).Inc()
		}
		if s.ReconcileError != "" {
			r.ReconcileErrors.Inc()
		}
	}
	r.JobsExpired.Add(float64(report.Expired))
}

// Handler serves the collectors in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the server fails or is shut down.
func (r *Recorder) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
