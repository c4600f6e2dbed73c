package adapter

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

const (
	leverBaseURL   = "https://api.lever.co/v0/postings"
	leverEUBaseURL = "https://api.eu.lever.co/v0/postings"
	leverPageSize  = 100
	leverMaxPages  = 50
)

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

type leverList struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

type leverSalaryRange struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
	Interval string   `json:"interval"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID                     string            `json:"id"`
	Text                   string            `json:"text"`
	Description            string            `json:"description"`
	DescriptionPlain       string            `json:"descriptionPlain"`
	Lists                  []leverList       `json:"lists"`
	Additional             string            `json:"additional"`
	Categories             leverCategories   `json:"categories"`
	Country                string            `json:"country"`
	CreatedAt              int64             `json:"createdAt"`
	WorkplaceType          string            `json:"workplaceType"`
	HostedURL              string            `json:"hostedUrl"`
	ApplyURL               string            `json:"applyUrl"`
	SalaryRange            *leverSalaryRange `json:"salaryRange"`
	SalaryDescriptionPlain string            `json:"salaryDescriptionPlain"`
}

type leverConfig struct {
	Site   string `cfg:"site" validate:"required,excludesall=/?#"`
	Region string `cfg:"region" validate:"omitempty,oneof=global eu"`
}

// Pacer blocks until the named ATS may be called again.
type Pacer interface {
	Wait(ctx context.Context, ats model.SourceType) error
}

// LeverAdapter fetches postings from the Lever public postings API.
type LeverAdapter struct {
	client    *http.Client
	baseURL   string
	euBaseURL string
	pageSize  int
	pacer     Pacer
}

// NewLeverAdapter creates an adapter serving every Lever source.
func NewLeverAdapter(client *http.Client) *LeverAdapter {
	return &LeverAdapter{
		client:    client,
		baseURL:   leverBaseURL,
		euBaseURL: leverEUBaseURL,
		pageSize:  leverPageSize,
	}
}

// WithPacer makes every page after the first wait on p. The first page is
// paced by whoever calls FetchPostings.
func (a *LeverAdapter) WithPacer(p Pacer) *LeverAdapter {
	a.pacer = p
	return a
}

func (a *LeverAdapter) Type() model.SourceType { return model.SourceLever }

func (a *LeverAdapter) config(src model.Source) leverConfig {
	return leverConfig{
		Site:   configValue(src, "site"),
		Region: strings.ToLower(configValue(src, "region")),
	}
}

// Validate checks that the source names a Lever site.
func (a *LeverAdapter) Validate(src model.Source) error {
	return validateConfig(src, a.config(src))
}

// FetchPostings pages through the site's postings until a short page.
func (a *LeverAdapter) FetchPostings(ctx context.Context, src model.Source) ([]model.RawPosting, error) {
	cfg := a.config(src)
	base := a.baseURL
	if cfg.Region == "eu" {
		base = a.euBaseURL
	}

	var postings []model.RawPosting
	for page := 0; page < leverMaxPages; page++ {
		if page > 0 && a.pacer != nil {
			if err := a.pacer.Wait(ctx, model.SourceLever); err != nil {
				return nil, err
			}
		}
		endpoint := fmt.Sprintf("%s/%s?mode=json&skip=%d&limit=%d",
			base, url.PathEscape(cfg.Site), page*a.pageSize, a.pageSize)

		var leverJobs []leverJob
		if err := getJSON(ctx, a.client, "lever", cfg.Site, endpoint, &leverJobs); err != nil {
			return nil, err
		}
		// A null body decodes to a nil slice; an empty page is [].
		if leverJobs == nil {
			return nil, missingJobsError("lever", cfg.Site)
		}
		for _, lj := range leverJobs {
			postings = append(postings, lj.toPosting())
		}
		if len(leverJobs) < a.pageSize {
			return postings, nil
		}
	}
	return nil, fmt.Errorf("lever fetch for %s: more than %d pages", cfg.Site, leverMaxPages)
}

func (lj leverJob) toPosting() model.RawPosting {
	// Determine location: prefer allLocations if available, fallback to location
	location := lj.Categories.Location
	if len(lj.Categories.AllLocations) > 0 {
		location = joinNonEmpty(", ", lj.Categories.AllLocations...)
	}

	// Convert createdAt (Unix milliseconds) to time.Time
	var postedAt *time.Time
	if lj.CreatedAt > 0 {
		t := time.UnixMilli(lj.CreatedAt).UTC()
		postedAt = &t
	}

	descHTML := lj.descriptionHTML()
	descText := extractText(descHTML)
	if descText == "" {
		descText = strings.TrimSpace(lj.DescriptionPlain)
	}

	p := model.RawPosting{
		NativeID:        lj.ID,
		Title:           strings.TrimSpace(lj.Text),
		WorkplaceType:   normalizeWorkplace(lj.WorkplaceType),
		Location:        location,
		Country:         lj.Country,
		Department:      joinNonEmpty(" / ", lj.Categories.Department, lj.Categories.Team),
		EmploymentType:  lj.Categories.Commitment,
		DescriptionHTML: descHTML,
		DescriptionText: descText,
		PublishedAt:     postedAt,
		URL:             lj.HostedURL,
		ApplyURL:        lj.ApplyURL,
	}
	if p.ApplyURL == "" {
		p.ApplyURL = lj.HostedURL
	}
	if lj.SalaryRange != nil || lj.SalaryDescriptionPlain != "" {
		s := &model.RawSalary{Summary: lj.SalaryDescriptionPlain}
		if lj.SalaryRange != nil {
			s.Min = lj.SalaryRange.Min
			s.Max = lj.SalaryRange.Max
			s.Currency = lj.SalaryRange.Currency
			s.Interval = lj.SalaryRange.Interval
		}
		p.Salary = s
	}
	return p
}

// descriptionHTML folds Lever's separate lists and closing section into one
// document, each list under its own heading.
func (lj leverJob) descriptionHTML() string {
	var b strings.Builder
	b.WriteString(lj.Description)
	for _, l := range lj.Lists {
		if strings.TrimSpace(l.Content) == "" {
			continue
		}
		fmt.Fprintf(&b, "<h3>%s</h3><ul>%s</ul>", html.EscapeString(l.Text), l.Content)
	}
	if strings.TrimSpace(lj.Additional) != "" {
		b.WriteString(lj.Additional)
	}
	return b.String()
}
