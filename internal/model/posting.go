package model

import (
	"context"
	"time"
)

// Workplace hints carried on a RawPosting. An empty string means the ATS did
// not declare one.
const (
	WorkplaceRemote = "remote"
	WorkplaceOnSite = "on-site"
	WorkplaceHybrid = "hybrid"
)

// RawPosting is one posting as an ATS returned it, reduced to the fields the
// pipeline reads. It only lives for the duration of a fetch cycle.
type RawPosting struct {
	NativeID        string
	Title           string
	Company         string // empty means "use the source's company"
	WorkplaceType   string // WorkplaceRemote, WorkplaceOnSite, WorkplaceHybrid or ""
	Location        string
	Country         string
	Department      string
	EmploymentType  string // free text, e.g. "Full-time", "FullTime", "Contract"
	DescriptionHTML string
	DescriptionText string
	Salary          *RawSalary
	PublishedAt     *time.Time
	UpdatedAt       *time.Time
	URL             string
	ApplyURL        string
}

// RawSalary is whatever compensation data the ATS exposed. Either the numeric
// bounds or Summary may be set; both may be partially filled.
type RawSalary struct {
	Min      *float64
	Max      *float64
	Currency string
	Interval string // free text: "per-year-salary", "1 YEAR", "hourly", ...
	Summary  string // free text such as "$120K – $150K"
	InCents  bool
}

// PostingFetcher pulls the raw postings of one source from its ATS.
type PostingFetcher interface {
	FetchPostings(ctx context.Context, src Source) ([]RawPosting, error)
}

// SourceValidator checks that a source carries the config its ATS needs.
type SourceValidator interface {
	Validate(src Source) error
}

// SourceFetcher is a fetcher variant for one ATS type.
type SourceFetcher interface {
	PostingFetcher
	SourceValidator
	Type() SourceType
}
