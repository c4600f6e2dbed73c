package model

import (
	"context"
	"time"
)

type JobType string

const (
	JobTypeFullTime   JobType = "FULL_TIME"
	JobTypePartTime   JobType = "PART_TIME"
	JobTypeContract   JobType = "CONTRACT"
	JobTypeInternship JobType = "INTERNSHIP"
	JobTypeTemporary  JobType = "TEMPORARY"
)

type ExperienceLevel string

const (
	ExperienceEntry  ExperienceLevel = "ENTRY"
	ExperienceJunior ExperienceLevel = "JUNIOR"
	ExperienceMid    ExperienceLevel = "MID"
	ExperienceSenior ExperienceLevel = "SENIOR"
	ExperienceLead   ExperienceLevel = "LEAD"
)

type WorkplaceType string

const (
	WorkplaceTypeRemote WorkplaceType = "REMOTE"
	WorkplaceTypeHybrid WorkplaceType = "HYBRID"
	WorkplaceTypeOnSite WorkplaceType = "ON_SITE"
)

type JobStatus string

const (
	StatusActive        JobStatus = "ACTIVE"
	StatusPendingReview JobStatus = "PENDING_REVIEW"
	StatusExpired       JobStatus = "EXPIRED"
	StatusRejected      JobStatus = "REJECTED"
)

type SalaryCycle string

const (
	CycleHourly  SalaryCycle = "HOURLY"
	CycleDaily   SalaryCycle = "DAILY"
	CycleWeekly  SalaryCycle = "WEEKLY"
	CycleMonthly SalaryCycle = "MONTHLY"
	CycleYearly  SalaryCycle = "YEARLY"
)

// Job is the canonical, persisted representation of a posting.
type Job struct {
	ID             string // derived from (SourceType, SourceNativeID)
	SourceID       string
	SourceType     SourceType
	SourceNativeID string

	CompanyID   string
	CompanyName string

	Title            string
	Description      string
	Requirements     string
	Responsibilities string
	Benefits         string
	JobType          JobType
	ExperienceLevel  ExperienceLevel
	WorkplaceType    WorkplaceType
	Location         string
	Country          string
	Skills           []string

	SalaryMin      *int64
	SalaryMax      *int64
	SalaryCurrency string
	SalaryCycle    SalaryCycle
	ShowSalary     bool

	ApplyURL string
	Status   JobStatus

	ViewCount  int64
	ClickCount int64

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt time.Time
	ExpiresAt   *time.Time
}

// Company is the employer a Job links to.
type Company struct {
	ID        string
	Name      string
	Website   string
	Logo      string
	CreatedAt time.Time
}

// JobStore is the narrow storage surface the pipeline writes through.
type JobStore interface {
	// FindJob returns nil, nil when no job has the given id.
	FindJob(ctx context.Context, id string) (*Job, error)
	// UpsertJob inserts or refreshes a job. On update the stored view and
	// click counters, CreatedAt and PublishedAt are kept.
	UpsertJob(ctx context.Context, job Job) error
	// FindOrCreateCompany resolves a company by name, creating it when unseen.
	// Website and logo are filled in on an existing company that lacks them.
	FindOrCreateCompany(ctx context.Context, c Company) (Company, error)
	// ExpireJobsNotIn moves ACTIVE jobs of sourceID whose native id is not in
	// foundIDs to EXPIRED and returns how many were moved.
	ExpireJobsNotIn(ctx context.Context, sourceID string, foundIDs []string, at time.Time) (int, error)
}

// JobQuery selects stored jobs for the serving layer.
type JobQuery struct {
	Status    JobStatus
	SourceID  string
	CompanyID string
	Skill     string
	Limit     int
}

// JobQuerier is the read side consumed by the serving layer.
type JobQuerier interface {
	ListJobs(ctx context.Context, q JobQuery) ([]Job, error)
}
