package model

import (
	"context"
	"time"
)

// SourceType tags which ATS a source talks to.
type SourceType string

const (
	SourceGreenhouse SourceType = "greenhouse"
	SourceLever      SourceType = "lever"
	SourceAshby      SourceType = "ashby"
)

// Source is one configured connection to a company's job board.
type Source struct {
	ID             string
	Name           string            // display name, also the default company name
	Type           SourceType
	Config         map[string]string // type-specific parameters (board_token, site, ...)
	Enabled        bool
	LastFetched    *time.Time
	CompanyWebsite string
	CompanyLogo    string
}

// CompanyName returns the name postings of this source are filed under.
func (s Source) CompanyName() string {
	return s.Name
}

// SourceRegistry holds the set of configured ingestion sources.
type SourceRegistry interface {
	ListEnabledSources(ctx context.Context) ([]Source, error)
	MarkFetched(ctx context.Context, sourceID string, at time.Time) error
}

// SourceAdmin covers the administrative side of the registry.
type SourceAdmin interface {
	SourceRegistry
	RegisterSource(ctx context.Context, src Source) error
	SetSourceEnabled(ctx context.Context, sourceID string, enabled bool) error
	ListSources(ctx context.Context) ([]Source, error)
}
