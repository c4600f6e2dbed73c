package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/amishk599/remoteboard/internal/model"
)

const (
	companyCacheTTL     = 30 * time.Minute
	companyCacheCleanup = time.Hour
)

// Normalizer maps a relevant RawPosting onto the canonical Job and writes it
// through the store.
type Normalizer struct {
	store     model.JobStore
	companies *gocache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Normalizer writing through store.
func New(store model.JobStore, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		store:     store,
		companies: gocache.New(companyCacheTTL, companyCacheCleanup),
		logger:    logger,
		now:       time.Now,
	}
}

// Process builds the Job for posting, merges it with the stored version if
// one exists, and upserts it. Exactly one UpsertJob call is made on success.
func (n *Normalizer) Process(ctx context.Context, posting model.RawPosting, src model.Source) (model.Job, error) {
	if strings.TrimSpace(posting.NativeID) == "" {
		return model.Job{}, fmt.Errorf("normalizing posting from %s: missing native id", src.ID)
	}

	company, err := n.company(ctx, posting, src)
	if err != nil {
		return model.Job{}, fmt.Errorf("normalizing posting %s: %w", posting.NativeID, err)
	}

	desc, err := parseDescription(posting.DescriptionHTML)
	if err != nil {
		n.logger.Warn("description html not parseable, using plain text",
			"source", src.ID, "posting_id", posting.NativeID, "error", err)
	}
	text := desc.Text
	if text == "" {
		text = strings.TrimSpace(posting.DescriptionText)
	}

	sal := parseSalary(posting.Salary)
	now := n.now().UTC()

	job := model.Job{
		ID:               JobID(src.Type, posting.NativeID),
		SourceID:         src.ID,
		SourceType:       src.Type,
		SourceNativeID:   posting.NativeID,
		CompanyID:        company.ID,
		CompanyName:      company.Name,
		Title:            strings.TrimSpace(posting.Title),
		Description:      text,
		Requirements:     desc.Requirements,
		Responsibilities: desc.Responsibilities,
		Benefits:         desc.Benefits,
		JobType:          jobType(posting.EmploymentType, posting.Title),
		ExperienceLevel:  experienceLevel(posting.Title),
		WorkplaceType:    workplaceType(posting.WorkplaceType),
		Location:         strings.TrimSpace(posting.Location),
		Country:          strings.TrimSpace(posting.Country),
		Skills:           extractSkills(posting.Title, text),
		SalaryMin:        sal.Min,
		SalaryMax:        sal.Max,
		SalaryCurrency:   sal.Currency,
		SalaryCycle:      sal.Cycle,
		ShowSalary:       sal.known(),
		ApplyURL:         applyURL(posting),
		Status:           model.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
		PublishedAt:      now,
	}
	if posting.PublishedAt != nil && !posting.PublishedAt.IsZero() {
		job.PublishedAt = posting.PublishedAt.UTC()
	}

	existing, err := n.store.FindJob(ctx, job.ID)
	if err != nil {
		return model.Job{}, fmt.Errorf("looking up job %s: %w", job.ID, err)
	}
	if existing != nil {
		job = merge(*existing, job)
	}

	if err := n.store.UpsertJob(ctx, job); err != nil {
		return model.Job{}, fmt.Errorf("upserting job %s: %w", job.ID, err)
	}
	return job, nil
}

// merge refreshes content on an existing job while keeping identity,
// history and moderation state.
func merge(existing, fresh model.Job) model.Job {
	fresh.ID = existing.ID
	fresh.CreatedAt = existing.CreatedAt
	fresh.PublishedAt = existing.PublishedAt
	fresh.ViewCount = existing.ViewCount
	fresh.ClickCount = existing.ClickCount

	switch existing.Status {
	case model.StatusRejected, model.StatusPendingReview:
		fresh.Status = existing.Status
		fresh.ExpiresAt = existing.ExpiresAt
	default:
		fresh.Status = model.StatusActive
		fresh.ExpiresAt = nil
	}
	return fresh
}

func (n *Normalizer) company(ctx context.Context, posting model.RawPosting, src model.Source) (model.Company, error) {
	name := strings.TrimSpace(posting.Company)
	if name == "" {
		name = strings.TrimSpace(src.CompanyName())
	}
	if name == "" {
		name = src.ID
	}

	key := src.ID + "|" + strings.ToLower(name)
	if cached, found := n.companies.Get(key); found {
		return cached.(model.Company), nil
	}

	c, err := n.store.FindOrCreateCompany(ctx, model.Company{
		Name:    name,
		Website: src.CompanyWebsite,
		Logo:    src.CompanyLogo,
	})
	if err != nil {
		return model.Company{}, fmt.Errorf("resolving company %q: %w", name, err)
	}
	n.companies.Set(key, c, gocache.DefaultExpiration)
	return c, nil
}

func applyURL(p model.RawPosting) string {
	if p.ApplyURL != "" {
		return p.ApplyURL
	}
	return p.URL
}
