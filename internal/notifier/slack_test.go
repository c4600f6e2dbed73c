package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReport(state model.RunState) model.RunReport {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	r := model.RunReport{
		RunID:      "run-123",
		State:      state,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		PerSource: []model.SourceReport{
			{SourceID: "gh-acme", SourceType: model.SourceGreenhouse, Stats: model.SourceStats{Found: 10, Relevant: 4, Processed: 4}},
		},
		Totals:  model.SourceStats{Found: 10, Relevant: 4, Processed: 4},
		Expired: 2,
	}
	if state == model.RunPartiallyFailed {
		r.PerSource = append(r.PerSource, model.SourceReport{
			SourceID:     "lv-beta",
			SourceType:   model.SourceLever,
			Stats:        model.SourceStats{Errors: 1},
			ErrorMessage: "HTTP 503: upstream maintenance",
		})
		r.Totals.Errors = 1
	}
	return r
}

func TestSlackNotifier_SkipsCompletedRunOnFailureMode(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, NotifyOnFailure, srv.Client(), discardLogger())

	if err := n.Notify(sampleReport(model.RunCompleted)); err != nil {
		t.Errorf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_DefaultModeIsFailure(t *testing.T) {
	n := NewSlackNotifier("http://unused", "", http.DefaultClient, discardLogger())
	if n.notifyOn != NotifyOnFailure {
		t.Errorf("notifyOn = %q, want %q", n.notifyOn, NotifyOnFailure)
	}
}

func TestSlackNotifier_AlwaysPostsCompletedRun(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, NotifyAlways, srv.Client(), discardLogger())
	if err := n.Notify(sampleReport(model.RunCompleted)); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Blocks[0].Text.Text != "✅ Ingestion run completed" {
		t.Errorf("header text = %q", payload.Blocks[0].Text.Text)
	}
	// header, two sections, divider
	if len(payload.Blocks) != 4 {
		t.Errorf("expected 4 blocks, got %d", len(payload.Blocks))
	}
}

func TestSlackNotifier_PartiallyFailedPayload(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, NotifyOnFailure, srv.Client(), discardLogger())
	report := sampleReport(model.RunPartiallyFailed)
	report.PerSource[0].ReconcileError = "database is locked"

	if err := n.Notify(report); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" || payload.Blocks[0].Text.Text != "⚠️ Ingestion run partially failed" {
		t.Errorf("unexpected header %+v", payload.Blocks[0])
	}
	if payload.Blocks[1].Fields[0].Text != "*Run:*\nrun-123" {
		t.Errorf("run field = %q", payload.Blocks[1].Fields[0].Text)
	}
	if payload.Blocks[1].Fields[1].Text != "*Duration:*\n1m30s" {
		t.Errorf("duration field = %q", payload.Blocks[1].Fields[1].Text)
	}
	if payload.Blocks[2].Fields[0].Text != "*Sources:*\n2 (1 failed)" {
		t.Errorf("sources field = %q", payload.Blocks[2].Fields[0].Text)
	}
	failed := payload.Blocks[3].Text.Text
	if !strings.Contains(failed, "*lv-beta* (lever)") || !strings.Contains(failed, "HTTP 503") {
		t.Errorf("failed sources section = %q", failed)
	}
	if payload.Blocks[4].Type != "context" || !strings.Contains(payload.Blocks[4].Elements[0].Text, "gh-acme: database is locked") {
		t.Errorf("unexpected reconcile block %+v", payload.Blocks[4])
	}
	if payload.Blocks[5].Type != "divider" {
		t.Errorf("block[5] type = %q, want divider", payload.Blocks[5].Type)
	}
	if payload.Text == "" {
		t.Error("fallback text should be set")
	}
}

func TestSlackNotifier_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, NotifyAlways, srv.Client(), discardLogger())
	if err := n.Notify(sampleReport(model.RunCompleted)); err == nil {
		t.Error("expected error on 500, got nil")
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := calls.Add(1)
		if c == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, NotifyOnFailure, srv.Client(), discardLogger())
	err := n.Notify(sampleReport(model.RunPartiallyFailed))
	if err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The sample report is a failed run, so it passes the default filter.
	n := NewSlackNotifier(srv.URL, NotifyOnFailure, srv.Client(), discardLogger())
	if err := SendTestMessage(n); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 HTTP call, got %d", c)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghij", 4); got != "abcd…" {
		t.Errorf("truncate long = %q", got)
	}
}
