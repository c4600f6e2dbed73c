package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/remoteboard/internal/model"
)

// EnvConfigPath names the environment variable consulted when no --config flag is given.
const EnvConfigPath = "REMOTEBOARD_CONFIG"

const defaultConfigPath = "config.yaml"

// Config is the root configuration for the remoteboard ingester.
type Config struct {
	Schedule      string `validate:"required"`
	Ingest        IngestConfig
	RateLimit     RateLimitConfig
	Relevance     RelevanceConfig
	Storage       StorageConfig
	Notification  NotificationConfig
	Metrics       MetricsConfig
	SourceConfigs []SourceConfig `validate:"unique=ID,dive"`
}

// IngestConfig bounds a single ingestion run.
type IngestConfig struct {
	Concurrency    int           `validate:"min=1,max=64"`
	SourceTimeout  time.Duration `validate:"gt=0"`
	HTTPTimeout    time.Duration `validate:"gt=0"`
	Retries        int           `validate:"min=0,max=10"`
	RetryBaseDelay time.Duration `validate:"gte=0"`
}

// RateLimitConfig controls ATS-level rate limiting.
type RateLimitConfig struct {
	MinDelay     time.Duration            // minimum gap between requests to the same ATS
	ATSOverrides map[string]time.Duration // per-ATS overrides, keyed by ATS name
}

// Overrides returns ATSOverrides keyed by source type.
func (r RateLimitConfig) Overrides() map[model.SourceType]time.Duration {
	out := make(map[model.SourceType]time.Duration, len(r.ATSOverrides))
	for ats, d := range r.ATSOverrides {
		out[model.SourceType(ats)] = d
	}
	return out
}

// RelevanceConfig tunes the remote classifier. Empty lists keep the built-in defaults.
type RelevanceConfig struct {
	RemoteKeywords      []string `yaml:"remote_keywords"`
	TargetRegions       []string `yaml:"target_regions"`
	RestrictivePatterns []string `yaml:"restrictive_patterns"`
}

// StorageConfig selects the job store backend.
type StorageConfig struct {
	Driver    string `validate:"oneof=sqlite postgres memory"`
	Path      string `validate:"required_if=Driver sqlite"`
	DSN       string `validate:"required_if=Driver postgres"`
	Retention time.Duration // expired jobs older than this are purged; zero disables
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type" validate:"oneof=log slack"`
	WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
	NotifyOn   string `yaml:"notify_on" validate:"oneof=failure always"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"omitempty,hostname_port"`
}

// SourceConfig describes a single ATS board to ingest.
type SourceConfig struct {
	ID             string            `yaml:"id" validate:"required"`
	Name           string            `yaml:"name" validate:"required"`
	Type           string            `yaml:"type" validate:"required"`
	Config         map[string]string `yaml:"config"`
	Enabled        *bool             `yaml:"enabled"`
	CompanyWebsite string            `yaml:"company_website" validate:"omitempty,url"`
	CompanyLogo    string            `yaml:"company_logo" validate:"omitempty,url"`
}

// IsEnabled reports whether the source is enabled; omitted means enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Schedule     string             `yaml:"schedule"`
	Ingest       rawIngestConfig    `yaml:"ingest"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Relevance    RelevanceConfig    `yaml:"relevance"`
	Storage      rawStorageConfig   `yaml:"storage"`
	Notification NotificationConfig `yaml:"notification"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Sources      []SourceConfig     `yaml:"sources"`
}

type rawIngestConfig struct {
	Concurrency    int    `yaml:"concurrency"`
	SourceTimeout  string `yaml:"source_timeout"`
	HTTPTimeout    string `yaml:"http_timeout"`
	Retries        *int   `yaml:"retries"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
}

type rawRateLimitConfig struct {
	MinDelay     string            `yaml:"min_delay"`
	ATSOverrides map[string]string `yaml:"ats_overrides"`
}

type rawStorageConfig struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	Retention string `yaml:"retention"`
}

// ResolvePath picks the config file: the --config flag, then
// $REMOTEBOARD_CONFIG, then ./config.yaml.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file in the working directory, if present, is loaded first so its
// variables can be referenced as ${VAR} in the YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := raw.toConfig()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (raw rawConfig) toConfig() (*Config, error) {
	var err error
	cfg := &Config{
		Schedule:      raw.Schedule,
		Relevance:     raw.Relevance,
		Notification:  raw.Notification,
		Metrics:       raw.Metrics,
		SourceConfigs: raw.Sources,
		Ingest: IngestConfig{
			Concurrency: raw.Ingest.Concurrency,
			Retries:     2,
		},
		Storage: StorageConfig{
			Driver: raw.Storage.Driver,
			Path:   raw.Storage.Path,
			DSN:    raw.Storage.DSN,
		},
		RateLimit: RateLimitConfig{
			ATSOverrides: make(map[string]time.Duration),
		},
	}

	if cfg.Schedule == "" {
		cfg.Schedule = "@every 30m"
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if raw.Ingest.Retries != nil {
		cfg.Ingest.Retries = *raw.Ingest.Retries
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.Path == "" {
		cfg.Storage.Path = "remoteboard.db"
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Notification.NotifyOn == "" {
		cfg.Notification.NotifyOn = "failure"
	}

	if cfg.Ingest.SourceTimeout, err = parseDuration("ingest.source_timeout", raw.Ingest.SourceTimeout, 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Ingest.HTTPTimeout, err = parseDuration("ingest.http_timeout", raw.Ingest.HTTPTimeout, 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Ingest.RetryBaseDelay, err = parseDuration("ingest.retry_base_delay", raw.Ingest.RetryBaseDelay, 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimit.MinDelay, err = parseDuration("rate_limit.min_delay", raw.RateLimit.MinDelay, 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Storage.Retention, err = parseDuration("storage.retention", raw.Storage.Retention, 30*24*time.Hour); err != nil {
		return nil, err
	}

	for ats, rawDelay := range raw.RateLimit.ATSOverrides {
		d, err := time.ParseDuration(rawDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.ats_overrides[%q]: %w", ats, err)
		}
		cfg.RateLimit.ATSOverrides[ats] = d
	}

	return cfg, nil
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

const slackWebhookPrefix = "https://hooks.slack.com/"

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	enabled := 0
	for _, s := range cfg.SourceConfigs {
		if s.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	}

	return nil
}

// Sources converts the configured sources into registry entries.
func (c *Config) Sources() []model.Source {
	out := make([]model.Source, 0, len(c.SourceConfigs))
	for _, s := range c.SourceConfigs {
		out = append(out, model.Source{
			ID:             s.ID,
			Name:           s.Name,
			Type:           model.SourceType(strings.ToLower(s.Type)),
			Config:         s.Config,
			Enabled:        s.IsEnabled(),
			CompanyWebsite: s.CompanyWebsite,
			CompanyLogo:    s.CompanyLogo,
		})
	}
	return out
}
