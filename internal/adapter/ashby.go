package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amishk599/remoteboard/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

type ashbyLocation struct {
	Location string        `json:"location"`
	Address  *ashbyAddress `json:"address"`
}

type ashbyAddress struct {
	PostalAddress *struct {
		AddressCountry  string `json:"addressCountry"`
		AddressLocality string `json:"addressLocality"`
	} `json:"postalAddress"`
}

type ashbyCompensationComponent struct {
	CompensationType string   `json:"compensationType"`
	Interval         string   `json:"interval"`
	CurrencyCode     string   `json:"currencyCode"`
	MinValue         *float64 `json:"minValue"`
	MaxValue         *float64 `json:"maxValue"`
}

type ashbyCompensation struct {
	CompensationTierSummary string                       `json:"compensationTierSummary"`
	SalarySummary           string                       `json:"scrapeableCompensationSalarySummary"`
	SummaryComponents       []ashbyCompensationComponent `json:"summaryComponents"`
}

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Department         string             `json:"department"`
	Team               string             `json:"team"`
	EmploymentType     string             `json:"employmentType"`
	Location           string             `json:"location"`
	SecondaryLocations []ashbyLocation    `json:"secondaryLocations"`
	Address            *ashbyAddress      `json:"address"`
	IsRemote           *bool              `json:"isRemote"`
	WorkplaceType      string             `json:"workplaceType"`
	DescriptionHTML    string             `json:"descriptionHtml"`
	DescriptionPlain   string             `json:"descriptionPlain"`
	JobURL             string             `json:"jobUrl"`
	ApplyURL           string             `json:"applyUrl"`
	PublishedAt        string             `json:"publishedAt"`
	IsListed           *bool              `json:"isListed"`
	Compensation       *ashbyCompensation `json:"compensation"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs *[]ashbyJob `json:"jobs"`
}

type ashbyConfig struct {
	JobBoardName string `cfg:"job_board_name" validate:"required,excludesall=/?#"`
}

// AshbyAdapter fetches postings from the Ashby public job board API.
type AshbyAdapter struct {
	client  *http.Client
	baseURL string
}

// NewAshbyAdapter creates an adapter serving every Ashby source.
func NewAshbyAdapter(client *http.Client) *AshbyAdapter {
	return &AshbyAdapter{client: client, baseURL: ashbyBaseURL}
}

func (a *AshbyAdapter) Type() model.SourceType { return model.SourceAshby }

func (a *AshbyAdapter) config(src model.Source) ashbyConfig {
	return ashbyConfig{JobBoardName: configValue(src, "job_board_name")}
}

// Validate checks that the source names an Ashby job board.
func (a *AshbyAdapter) Validate(src model.Source) error {
	return validateConfig(src, a.config(src))
}

// FetchPostings retrieves the listed jobs of the board with compensation data.
// Unlisted jobs are not public and are dropped here.
func (a *AshbyAdapter) FetchPostings(ctx context.Context, src model.Source) ([]model.RawPosting, error) {
	cfg := a.config(src)
	endpoint := fmt.Sprintf("%s/%s?includeCompensation=true", a.baseURL, url.PathEscape(cfg.JobBoardName))

	var ashbyResp ashbyResponse
	if err := getJSON(ctx, a.client, "ashby", cfg.JobBoardName, endpoint, &ashbyResp); err != nil {
		return nil, err
	}
	if ashbyResp.Jobs == nil {
		return nil, missingJobsError("ashby", cfg.JobBoardName)
	}

	postings := make([]model.RawPosting, 0, len(*ashbyResp.Jobs))
	for _, aj := range *ashbyResp.Jobs {
		if aj.IsListed != nil && !*aj.IsListed {
			continue
		}
		postings = append(postings, aj.toPosting())
	}
	return postings, nil
}

func (aj ashbyJob) toPosting() model.RawPosting {
	id := aj.ID
	if id == "" {
		id = aj.JobURL
	}

	locations := []string{aj.Location}
	for _, sl := range aj.SecondaryLocations {
		locations = append(locations, sl.Location)
	}

	descText := strings.TrimSpace(aj.DescriptionPlain)
	if descText == "" {
		descText = extractText(aj.DescriptionHTML)
	}

	p := model.RawPosting{
		NativeID:        id,
		Title:           strings.TrimSpace(aj.Title),
		WorkplaceType:   aj.workplaceType(),
		Location:        joinNonEmpty(", ", locations...),
		Country:         aj.country(),
		Department:      joinNonEmpty(" / ", aj.Department, aj.Team),
		EmploymentType:  aj.EmploymentType,
		DescriptionHTML: aj.DescriptionHTML,
		DescriptionText: descText,
		PublishedAt:     parseTime(aj.PublishedAt),
		URL:             aj.JobURL,
		ApplyURL:        aj.ApplyURL,
		Salary:          aj.salary(),
	}
	if p.ApplyURL == "" {
		p.ApplyURL = aj.JobURL
	}
	return p
}

func (aj ashbyJob) workplaceType() string {
	if wt := normalizeWorkplace(aj.WorkplaceType); wt != "" {
		return wt
	}
	if aj.IsRemote != nil && *aj.IsRemote {
		return model.WorkplaceRemote
	}
	return ""
}

func (aj ashbyJob) country() string {
	if aj.Address != nil && aj.Address.PostalAddress != nil {
		return aj.Address.PostalAddress.AddressCountry
	}
	return ""
}

func (aj ashbyJob) salary() *model.RawSalary {
	if aj.Compensation == nil {
		return nil
	}
	c := aj.Compensation
	for _, comp := range c.SummaryComponents {
		if !strings.EqualFold(comp.CompensationType, "Salary") {
			continue
		}
		return &model.RawSalary{
			Min:      comp.MinValue,
			Max:      comp.MaxValue,
			Currency: comp.CurrencyCode,
			Interval: comp.Interval,
			Summary:  c.SalarySummary,
		}
	}
	summary := c.SalarySummary
	if summary == "" {
		summary = c.CompensationTierSummary
	}
	if summary == "" {
		return nil
	}
	return &model.RawSalary{Summary: summary}
}
