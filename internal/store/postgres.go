package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/remoteboard/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS companies (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name       TEXT NOT NULL,
	website    TEXT NOT NULL DEFAULT '',
	logo       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS companies_name_lower_idx ON companies (lower(name));

CREATE TABLE IF NOT EXISTS sources (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	type            TEXT NOT NULL,
	config          JSONB NOT NULL DEFAULT '{}',
	enabled         BOOLEAN NOT NULL DEFAULT TRUE,
	last_fetched    TIMESTAMPTZ,
	company_website TEXT NOT NULL DEFAULT '',
	company_logo    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	id               UUID PRIMARY KEY,
	source_id        TEXT NOT NULL,
	source_type      TEXT NOT NULL,
	source_native_id TEXT NOT NULL,
	company_id       UUID NOT NULL REFERENCES companies (id),
	company_name     TEXT NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	requirements     TEXT NOT NULL DEFAULT '',
	responsibilities TEXT NOT NULL DEFAULT '',
	benefits         TEXT NOT NULL DEFAULT '',
	job_type         TEXT NOT NULL,
	experience_level TEXT NOT NULL,
	workplace_type   TEXT NOT NULL,
	location         TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	skills           TEXT[] NOT NULL DEFAULT '{}',
	salary_min       BIGINT,
	salary_max       BIGINT,
	salary_currency  TEXT NOT NULL DEFAULT '',
	salary_cycle     TEXT NOT NULL,
	show_salary      BOOLEAN NOT NULL DEFAULT FALSE,
	apply_url        TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	view_count       BIGINT NOT NULL DEFAULT 0,
	click_count      BIGINT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	published_at     TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS jobs_source_native_idx ON jobs (source_type, source_native_id);
CREATE INDEX IF NOT EXISTS jobs_source_status_idx ON jobs (source_id, status);
CREATE INDEX IF NOT EXISTS jobs_skills_idx ON jobs USING GIN (skills);
`

// PostgresStore persists jobs, companies and sources in PostgreSQL. It is the
// store the serving layer reads from in production.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) FindJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+pgJobColumns+" FROM jobs WHERE id = $1", id)
	j, err := scanPgJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding job %s: %w", id, err)
	}
	return &j, nil
}

func (s *PostgresStore) UpsertJob(ctx context.Context, j model.Job) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
		ON CONFLICT (id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			company_id = EXCLUDED.company_id,
			company_name = EXCLUDED.company_name,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			requirements = EXCLUDED.requirements,
			responsibilities = EXCLUDED.responsibilities,
			benefits = EXCLUDED.benefits,
			job_type = EXCLUDED.job_type,
			experience_level = EXCLUDED.experience_level,
			workplace_type = EXCLUDED.workplace_type,
			location = EXCLUDED.location,
			country = EXCLUDED.country,
			skills = EXCLUDED.skills,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			salary_currency = EXCLUDED.salary_currency,
			salary_cycle = EXCLUDED.salary_cycle,
			show_salary = EXCLUDED.show_salary,
			apply_url = EXCLUDED.apply_url,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`,
		j.ID, j.SourceID, string(j.SourceType), j.SourceNativeID, j.CompanyID, j.CompanyName,
		j.Title, j.Description, j.Requirements, j.Responsibilities, j.Benefits,
		string(j.JobType), string(j.ExperienceLevel), string(j.WorkplaceType), j.Location, j.Country, nonNilSkills(j.Skills),
		j.SalaryMin, j.SalaryMax, j.SalaryCurrency, string(j.SalaryCycle), j.ShowSalary,
		j.ApplyURL, string(j.Status), j.ViewCount, j.ClickCount,
		j.CreatedAt, j.UpdatedAt, j.PublishedAt, j.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting job %s: %w", j.ID, err)
	}
	return nil
}

func (s *PostgresStore) FindOrCreateCompany(ctx context.Context, c model.Company) (model.Company, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return model.Company{}, fmt.Errorf("company name cannot be empty")
	}

	var out model.Company
	err := s.pool.QueryRow(ctx,
		`INSERT INTO companies (name, website, logo)
		 VALUES ($1, $2, $3)
		 ON CONFLICT ((lower(name))) DO UPDATE SET
			website = CASE WHEN companies.website = '' THEN EXCLUDED.website ELSE companies.website END,
			logo = CASE WHEN companies.logo = '' THEN EXCLUDED.logo ELSE companies.logo END
		 RETURNING id::text, name, website, logo, created_at`,
		name, c.Website, c.Logo,
	).Scan(&out.ID, &out.Name, &out.Website, &out.Logo, &out.CreatedAt)
	if err != nil {
		return model.Company{}, fmt.Errorf("saving company %q: %w", name, err)
	}
	return out, nil
}

// ExpireJobsNotIn moves ACTIVE jobs of sourceID that are missing from
// foundIDs to EXPIRED in one statement.
func (s *PostgresStore) ExpireJobsNotIn(ctx context.Context, sourceID string, foundIDs []string, at time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, expires_at = $2, updated_at = $2
		 WHERE source_id = $3 AND status = $4 AND NOT (source_native_id = ANY($5))`,
		string(model.StatusExpired), at, sourceID, string(model.StatusActive), nonNilSkills(foundIDs),
	)
	if err != nil {
		return 0, fmt.Errorf("expiring jobs of %s: %w", sourceID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2`,
		string(model.StatusExpired), cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging jobs expired before %v: %w", cutoff, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, q model.JobQuery) ([]model.Job, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.Status != "" {
		where = append(where, "status = "+arg(string(q.Status)))
	}
	if q.SourceID != "" {
		where = append(where, "source_id = "+arg(q.SourceID))
	}
	if q.CompanyID != "" {
		where = append(where, "company_id::text = "+arg(q.CompanyID))
	}
	if q.Skill != "" {
		where = append(where, "EXISTS (SELECT 1 FROM unnest(skills) sk WHERE lower(sk) = lower("+arg(q.Skill)+"))")
	}

	query := "SELECT " + pgJobColumns + " FROM jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY published_at DESC, id"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listing jobs: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) RegisterSource(ctx context.Context, src model.Source) error {
	if src.ID == "" {
		return fmt.Errorf("registering source: id is required")
	}
	cfg := src.Config
	if cfg == nil {
		cfg = map[string]string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sources (id, name, type, config, enabled, company_website, company_logo)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			config = EXCLUDED.config,
			enabled = EXCLUDED.enabled,
			company_website = EXCLUDED.company_website,
			company_logo = EXCLUDED.company_logo`,
		src.ID, src.Name, string(src.Type), cfg, src.Enabled, src.CompanyWebsite, src.CompanyLogo,
	)
	if err != nil {
		return fmt.Errorf("registering source %s: %w", src.ID, err)
	}
	return nil
}

func (s *PostgresStore) SetSourceEnabled(ctx context.Context, sourceID string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sources SET enabled = $1 WHERE id = $2`, enabled, sourceID)
	if err != nil {
		return fmt.Errorf("updating source %s: %w", sourceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %s: %w", sourceID, ErrSourceNotFound)
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, "")
}

func (s *PostgresStore) ListEnabledSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, " WHERE enabled")
}

func (s *PostgresStore) querySources(ctx context.Context, where string) ([]model.Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, type, config, enabled, last_fetched, company_website, company_logo
		 FROM sources`+where+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var out []model.Source
	for rows.Next() {
		var src model.Source
		var typ string
		if err := rows.Scan(&src.ID, &src.Name, &typ, &src.Config, &src.Enabled, &src.LastFetched,
			&src.CompanyWebsite, &src.CompanyLogo); err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
		src.Type = model.SourceType(typ)
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkFetched(ctx context.Context, sourceID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sources SET last_fetched = $1 WHERE id = $2`, at, sourceID)
	if err != nil {
		return fmt.Errorf("marking source %s fetched: %w", sourceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %s: %w", sourceID, ErrSourceNotFound)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgJobColumns reads uuid columns back as text.
const pgJobColumns = `id::text, source_id, source_type, source_native_id, company_id::text, company_name,
	title, description, requirements, responsibilities, benefits,
	job_type, experience_level, workplace_type, location, country, skills,
	salary_min, salary_max, salary_currency, salary_cycle, show_salary,
	apply_url, status, view_count, click_count,
	created_at, updated_at, published_at, expires_at`

func scanPgJob(row pgx.Row) (model.Job, error) {
	var (
		j                                     model.Job
		sourceType, jobType, level, workplace string
		cycle, status                         string
	)
	err := row.Scan(&j.ID, &j.SourceID, &sourceType, &j.SourceNativeID, &j.CompanyID, &j.CompanyName,
		&j.Title, &j.Description, &j.Requirements, &j.Responsibilities, &j.Benefits,
		&jobType, &level, &workplace, &j.Location, &j.Country, &j.Skills,
		&j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency, &cycle, &j.ShowSalary,
		&j.ApplyURL, &status, &j.ViewCount, &j.ClickCount,
		&j.CreatedAt, &j.UpdatedAt, &j.PublishedAt, &j.ExpiresAt)
	if err != nil {
		return model.Job{}, err
	}
	j.SourceType = model.SourceType(sourceType)
	j.JobType = model.JobType(jobType)
	j.ExperienceLevel = model.ExperienceLevel(level)
	j.WorkplaceType = model.WorkplaceType(workplace)
	j.SalaryCycle = model.SalaryCycle(cycle)
	j.Status = model.JobStatus(status)
	return j, nil
}
