package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/amishk599/remoteboard/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             flexString           `json:"id"`
	Title          string               `json:"title"`
	Location       *greenhouseLocation  `json:"location"`
	AbsoluteURL    string               `json:"absolute_url"`
	UpdatedAt      string               `json:"updated_at"`
	FirstPublished string               `json:"first_published"`
	Content        string               `json:"content"`
	Metadata       []greenhouseMetadata `json:"metadata"`
	Departments    []greenhouseNamed    `json:"departments"`
	Offices        []greenhouseOffice   `json:"offices"`
	PayRanges      []greenhousePayRange `json:"pay_input_ranges"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseMetadata struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type greenhouseNamed struct {
	Name string `json:"name"`
}

type greenhouseOffice struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type greenhousePayRange struct {
	MinCents     *float64 `json:"min_cents"`
	MaxCents     *float64 `json:"max_cents"`
	CurrencyType string   `json:"currency_type"`
	Title        string   `json:"title"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response. Jobs is
// nil when the body has no jobs array, which is not the same as an empty board.
type greenhouseResponse struct {
	Jobs *[]greenhouseJob `json:"jobs"`
}

type greenhouseConfig struct {
	BoardToken string `cfg:"board_token" validate:"required,excludesall=/?#"`
}

// GreenhouseAdapter fetches postings from the Greenhouse public boards API.
type GreenhouseAdapter struct {
	client  *http.Client
	baseURL string
}

// NewGreenhouseAdapter creates an adapter serving every Greenhouse source.
func NewGreenhouseAdapter(client *http.Client) *GreenhouseAdapter {
	return &GreenhouseAdapter{client: client, baseURL: greenhouseBaseURL}
}

func (a *GreenhouseAdapter) Type() model.SourceType { return model.SourceGreenhouse }

func (a *GreenhouseAdapter) config(src model.Source) greenhouseConfig {
	return greenhouseConfig{BoardToken: configValue(src, "board_token")}
}

// Validate checks that the source names a board token.
func (a *GreenhouseAdapter) Validate(src model.Source) error {
	return validateConfig(src, a.config(src))
}

// FetchPostings retrieves every job on the board, including content, and maps
// them to RawPosting.
func (a *GreenhouseAdapter) FetchPostings(ctx context.Context, src model.Source) ([]model.RawPosting, error) {
	cfg := a.config(src)
	endpoint := fmt.Sprintf("%s/%s/jobs?content=true", a.baseURL, url.PathEscape(cfg.BoardToken))

	var ghResp greenhouseResponse
	if err := getJSON(ctx, a.client, "greenhouse", cfg.BoardToken, endpoint, &ghResp); err != nil {
		return nil, err
	}
	if ghResp.Jobs == nil {
		return nil, missingJobsError("greenhouse", cfg.BoardToken)
	}

	postings := make([]model.RawPosting, 0, len(*ghResp.Jobs))
	for _, gj := range *ghResp.Jobs {
		postings = append(postings, gj.toPosting())
	}
	return postings, nil
}

func (gj greenhouseJob) toPosting() model.RawPosting {
	location := ""
	if gj.Location != nil {
		location = gj.Location.Name
	}
	if strings.TrimSpace(location) == "" {
		for _, o := range gj.Offices {
			location = joinNonEmpty(", ", location, o.Location, o.Name)
		}
	}

	// Greenhouse double-encodes content: unescape once to get real HTML.
	descHTML := html.UnescapeString(gj.Content)

	p := model.RawPosting{
		NativeID:        string(gj.ID),
		Title:           strings.TrimSpace(gj.Title),
		WorkplaceType:   gj.workplaceType(),
		Location:        location,
		DescriptionHTML: descHTML,
		DescriptionText: extractText(descHTML),
		EmploymentType:  gj.metadataValue("employment type", "job type", "commitment"),
		URL:             gj.AbsoluteURL,
		ApplyURL:        gj.AbsoluteURL,
		PublishedAt:     parseTime(gj.FirstPublished),
		UpdatedAt:       parseTime(gj.UpdatedAt),
	}
	if len(gj.Departments) > 0 {
		p.Department = gj.Departments[0].Name
	}
	if p.PublishedAt == nil {
		p.PublishedAt = p.UpdatedAt
	}
	if len(gj.PayRanges) > 0 {
		pr := gj.PayRanges[0]
		p.Salary = &model.RawSalary{
			Min:      pr.MinCents,
			Max:      pr.MaxCents,
			Currency: pr.CurrencyType,
			Summary:  pr.Title,
			InCents:  true,
		}
	}
	return p
}

// workplaceType reads the custom field boards commonly use to flag remote
// roles. Greenhouse has no first-class workplace field.
func (gj greenhouseJob) workplaceType() string {
	for _, m := range gj.Metadata {
		name := strings.ToLower(m.Name)
		if strings.Contains(name, "workplace") || strings.Contains(name, "location type") ||
			strings.Contains(name, "remote status") || strings.Contains(name, "work model") {
			if wt := normalizeWorkplace(looseText(m.Value)); wt != "" {
				return wt
			}
		}
	}
	return ""
}

func (gj greenhouseJob) metadataValue(names ...string) string {
	for _, m := range gj.Metadata {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		for _, want := range names {
			if name == want {
				return looseText(m.Value)
			}
		}
	}
	return ""
}
