package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalSources = `
sources:
  - id: gh-acme
    name: Acme
    type: greenhouse
    config:
      board_token: acme
`

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
schedule: "*/15 * * * *"
ingest:
  concurrency: 8
  source_timeout: 2m
  http_timeout: 10s
  retries: 0
rate_limit:
  min_delay: 1s
  ats_overrides:
    lever: 3s
relevance:
  target_regions: [LATAM, Brazil]
storage:
  driver: postgres
  dsn: postgres://localhost/remoteboard
  retention: 168h
notification:
  type: slack
  webhook_url: https://hooks.slack.com/services/T000/B000/XXX
  notify_on: always
metrics:
  listen_addr: ":9090"
sources:
  - id: gh-acme
    name: Acme
    type: greenhouse
    config:
      board_token: acme
    company_website: https://acme.example
  - id: lv-beta
    name: Beta
    type: Lever
    enabled: false
    config:
      site: beta
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != "*/15 * * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	if cfg.Ingest.Concurrency != 8 || cfg.Ingest.SourceTimeout != 2*time.Minute || cfg.Ingest.HTTPTimeout != 10*time.Second {
		t.Errorf("Ingest = %+v", cfg.Ingest)
	}
	if cfg.Ingest.Retries != 0 {
		t.Errorf("explicit retries: 0 should be kept, got %d", cfg.Ingest.Retries)
	}
	if cfg.RateLimit.MinDelay != time.Second {
		t.Errorf("MinDelay = %v", cfg.RateLimit.MinDelay)
	}
	overrides := cfg.RateLimit.Overrides()
	if len(overrides) != 1 || overrides[model.SourceLever] != 3*time.Second {
		t.Errorf("Overrides = %v", overrides)
	}
	if len(cfg.Relevance.TargetRegions) != 2 {
		t.Errorf("TargetRegions = %v", cfg.Relevance.TargetRegions)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.Retention != 7*24*time.Hour {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Notification.NotifyOn != "always" || cfg.Metrics.ListenAddr != ":9090" {
		t.Errorf("Notification = %+v, Metrics = %+v", cfg.Notification, cfg.Metrics)
	}

	sources := cfg.Sources()
	if len(sources) != 2 {
		t.Fatalf("Sources = %+v", sources)
	}
	if sources[0].ID != "gh-acme" || sources[0].Type != model.SourceGreenhouse || !sources[0].Enabled {
		t.Errorf("sources[0] = %+v", sources[0])
	}
	if sources[0].Config["board_token"] != "acme" || sources[0].CompanyWebsite != "https://acme.example" {
		t.Errorf("sources[0] config = %+v", sources[0])
	}
	if sources[1].Type != model.SourceLever || sources[1].Enabled {
		t.Errorf("sources[1] = %+v", sources[1])
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalSources))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != "@every 30m" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	want := IngestConfig{
		Concurrency:    4,
		SourceTimeout:  5 * time.Minute,
		HTTPTimeout:    30 * time.Second,
		Retries:        2,
		RetryBaseDelay: 5 * time.Second,
	}
	if cfg.Ingest != want {
		t.Errorf("Ingest = %+v, want %+v", cfg.Ingest, want)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "remoteboard.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Notification.Type != "log" || cfg.Notification.NotifyOn != "failure" {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
	if cfg.RateLimit.MinDelay != 2*time.Second {
		t.Errorf("MinDelay = %v", cfg.RateLimit.MinDelay)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("REMOTEBOARD_TEST_TOKEN", "from-env")
	cfg, err := Load(writeConfig(t, `
sources:
  - id: gh-acme
    name: Acme
    type: greenhouse
    config:
      board_token: ${REMOTEBOARD_TEST_TOKEN}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Sources()[0].Config["board_token"]; got != "from-env" {
		t.Errorf("board_token = %q, want from-env", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "schedule: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "ingest:\n  source_timeout: soon\n"+minimalSources))
	if err == nil || !strings.Contains(err.Error(), "ingest.source_timeout") {
		t.Fatalf("Load: expected source_timeout error, got %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no enabled sources",
			content: "sources:\n  - id: a\n    name: A\n    type: greenhouse\n    enabled: false\n",
			wantErr: "at least one source must be enabled",
		},
		{
			name:    "duplicate source ids",
			content: "sources:\n  - id: a\n    name: A\n    type: greenhouse\n  - id: a\n    name: B\n    type: lever\n",
			wantErr: "SourceConfigs",
		},
		{
			name:    "missing source type",
			content: "sources:\n  - id: a\n    name: A\n",
			wantErr: "Type",
		},
		{
			name:    "postgres without dsn",
			content: "storage:\n  driver: postgres\n" + minimalSources,
			wantErr: "DSN",
		},
		{
			name:    "unknown storage driver",
			content: "storage:\n  driver: mongo\n" + minimalSources,
			wantErr: "Driver",
		},
		{
			name:    "slack without webhook",
			content: "notification:\n  type: slack\n" + minimalSources,
			wantErr: "webhook_url is required",
		},
		{
			name:    "slack with foreign webhook",
			content: "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n" + minimalSources,
			wantErr: "must start with https://hooks.slack.com/",
		},
		{
			name:    "bad notify_on",
			content: "notification:\n  notify_on: sometimes\n" + minimalSources,
			wantErr: "NotifyOn",
		},
		{
			name:    "negative concurrency",
			content: "ingest:\n  concurrency: -1\n" + minimalSources,
			wantErr: "Concurrency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load: expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != "config.yaml" {
		t.Errorf("default = %q", got)
	}

	t.Setenv(EnvConfigPath, "/etc/remoteboard.yaml")
	if got := ResolvePath(""); got != "/etc/remoteboard.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := ResolvePath("custom.yaml"); got != "custom.yaml" {
		t.Errorf("flag = %q", got)
	}
}
