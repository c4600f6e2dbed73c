package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// When a SlackNotifier posts a report.
const (
	NotifyOnFailure = "failure"
	NotifyAlways    = "always"
)

const maxRetryAfter = 30 * time.Second

// SlackNotifier sends run reports to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	notifyOn   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts run reports to Slack via
// webhook. notifyOn is NotifyOnFailure (the default) or NotifyAlways.
func NewSlackNotifier(webhookURL, notifyOn string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	if notifyOn != NotifyAlways {
		notifyOn = NotifyOnFailure
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		notifyOn:   notifyOn,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify posts the report as one Block Kit message. Completed runs are only
// posted when notifyOn is NotifyAlways.
func (s *SlackNotifier) Notify(report model.RunReport) error {
	if s.notifyOn == NotifyOnFailure && report.State != model.RunPartiallyFailed {
		return nil
	}

	body, err := json.Marshal(buildPayload(report))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		wait := min(time.Duration(max(secs, 1))*time.Second, maxRetryAfter)
		s.logger.Warn("slack rate limited, retrying", "retry_after", wait)
		time.Sleep(wait)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack report sent", "run_id", report.RunID, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack report sent", "run_id", report.RunID)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample failed-run report to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	report := model.RunReport{
		RunID:      "test-run",
		State:      model.RunPartiallyFailed,
		StartedAt:  now.Add(-42 * time.Second),
		FinishedAt: now,
		PerSource: []model.SourceReport{
			{
				SourceID:     "test-source",
				SourceName:   "Remoteboard Test",
				SourceType:   model.SourceGreenhouse,
				Stats:        model.SourceStats{Errors: 1},
				ErrorMessage: "integration check, no action needed",
			},
		},
		Totals: model.SourceStats{Errors: 1},
	}
	return n.Notify(report)
}

func buildPayload(r model.RunReport) slackPayload {
	title := "✅ Ingestion run completed"
	if r.State == model.RunPartiallyFailed {
		title = "⚠️ Ingestion run partially failed"
	}
	duration := r.FinishedAt.Sub(r.StartedAt).Round(time.Second)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Run:*\n" + r.RunID},
				{Type: "mrkdwn", Text: "*Duration:*\n" + duration.String()},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Sources:*\n%d (%d failed)", len(r.PerSource), len(r.FailedSources()))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Jobs:*\n%d found, %d relevant, %d stored, %d errors, %d expired",
					r.Totals.Found, r.Totals.Relevant, r.Totals.Processed, r.Totals.Errors, r.Expired)},
			},
		},
	}

	if failed := r.FailedSources(); len(failed) > 0 {
		lines := make([]string, 0, len(failed))
		for _, s := range failed {
			lines = append(lines, fmt.Sprintf("• *%s* (%s): `%s`", s.SourceID, s.SourceType, truncate(s.ErrorMessage, 200)))
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Failed sources:*\n" + strings.Join(lines, "\n")},
		})
	}

	var reconcile []string
	for _, s := range r.PerSource {
		if s.ReconcileError != "" {
			reconcile = append(reconcile, fmt.Sprintf("%s: %s", s.SourceID, truncate(s.ReconcileError, 200)))
		}
	}
	if len(reconcile) > 0 {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: "Reconciliation errors: " + strings.Join(reconcile, "; ")}},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Text: title, Blocks: blocks}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
