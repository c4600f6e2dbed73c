package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/amishk599/remoteboard/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS companies (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL COLLATE NOCASE UNIQUE,
	website    TEXT NOT NULL DEFAULT '',
	logo       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	type            TEXT NOT NULL,
	config          TEXT NOT NULL DEFAULT '{}',
	enabled         INTEGER NOT NULL DEFAULT 1,
	last_fetched    TEXT,
	company_website TEXT NOT NULL DEFAULT '',
	company_logo    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	source_id        TEXT NOT NULL,
	source_type      TEXT NOT NULL,
	source_native_id TEXT NOT NULL,
	company_id       TEXT NOT NULL,
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
	skills           TEXT NOT NULL DEFAULT '[]',
	salary_min       INTEGER,
	salary_max       INTEGER,
	salary_currency  TEXT NOT NULL DEFAULT '',
	salary_cycle     TEXT NOT NULL,
	show_salary      INTEGER NOT NULL DEFAULT 0,
	apply_url        TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	view_count       INTEGER NOT NULL DEFAULT 0,
	click_count      INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	published_at     TEXT NOT NULL,
	expires_at       TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS jobs_source_native_idx ON jobs (source_type, source_native_id);
CREATE INDEX IF NOT EXISTS jobs_source_status_idx ON jobs (source_id, status);
`

const jobColumns = `id, source_id, source_type, source_native_id, company_id, company_name,
	title, description, requirements, responsibilities, benefits,
	job_type, experience_level, workplace_type, location, country, skills,
	salary_min, salary_max, salary_currency, salary_cycle, show_salary,
	apply_url, status, view_count, click_count,
	created_at, updated_at, published_at, expires_at`

// SQLiteStore persists jobs, companies and sources in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection serializes writers; SQLite would otherwise report SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// FindJob returns the job with the given id, or nil if there is none.
func (s *SQLiteStore) FindJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding job %s: %w", id, err)
	}
	return &j, nil
}

// UpsertJob inserts the job or refreshes the stored row. Counters, created_at
// and published_at belong to the stored row and are never overwritten.
func (s *SQLiteStore) UpsertJob(ctx context.Context, j model.Job) error {
	skills, err := json.Marshal(nonNilSkills(j.Skills))
	if err != nil {
		return fmt.Errorf("encoding skills for job %s: %w", j.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source_id = excluded.source_id,
			company_id = excluded.company_id,
			company_name = excluded.company_name,
			title = excluded.title,
			description = excluded.description,
			requirements = excluded.requirements,
			responsibilities = excluded.responsibilities,
			benefits = excluded.benefits,
			job_type = excluded.job_type,
			experience_level = excluded.experience_level,
			workplace_type = excluded.workplace_type,
			location = excluded.location,
			country = excluded.country,
			skills = excluded.skills,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max,
			salary_currency = excluded.salary_currency,
			salary_cycle = excluded.salary_cycle,
			show_salary = excluded.show_salary,
			apply_url = excluded.apply_url,
			status = excluded.status,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		j.ID, j.SourceID, string(j.SourceType), j.SourceNativeID, j.CompanyID, j.CompanyName,
		j.Title, j.Description, j.Requirements, j.Responsibilities, j.Benefits,
		string(j.JobType), string(j.ExperienceLevel), string(j.WorkplaceType), j.Location, j.Country, string(skills),
		j.SalaryMin, j.SalaryMax, j.SalaryCurrency, string(j.SalaryCycle), j.ShowSalary,
		j.ApplyURL, string(j.Status), j.ViewCount, j.ClickCount,
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt), formatTime(j.PublishedAt), formatTimePtr(j.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("upserting job %s: %w", j.ID, err)
	}
	return nil
}

// FindOrCreateCompany resolves a company by case-insensitive name.
func (s *SQLiteStore) FindOrCreateCompany(ctx context.Context, c model.Company) (model.Company, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return model.Company{}, fmt.Errorf("company name cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO companies (id, name, website, logo, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			website = CASE WHEN companies.website = '' THEN excluded.website ELSE companies.website END,
			logo = CASE WHEN companies.logo = '' THEN excluded.logo ELSE companies.logo END`,
		uuid.NewString(), name, c.Website, c.Logo, formatTime(time.Now()),
	)
	if err != nil {
		return model.Company{}, fmt.Errorf("saving company %q: %w", name, err)
	}

	var out model.Company
	var createdAt string
	err = s.db.QueryRowContext(ctx,
		"SELECT id, name, website, logo, created_at FROM companies WHERE name = ?", name,
	).Scan(&out.ID, &out.Name, &out.Website, &out.Logo, &createdAt)
	if err != nil {
		return model.Company{}, fmt.Errorf("loading company %q: %w", name, err)
	}
	if out.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return model.Company{}, fmt.Errorf("loading company %q: %w", name, err)
	}
	return out, nil
}

// ExpireJobsNotIn retires the ACTIVE jobs of a source that were not seen in
// its latest fetch. Jobs already EXPIRED are left untouched.
func (s *SQLiteStore) ExpireJobsNotIn(ctx context.Context, sourceID string, foundIDs []string, at time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("expiring jobs of %s: %w", sourceID, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id, source_native_id FROM jobs WHERE source_id = ? AND status = ?",
		sourceID, string(model.StatusActive))
	if err != nil {
		return 0, fmt.Errorf("expiring jobs of %s: %w", sourceID, err)
	}
	found := foundSet(foundIDs)
	var stale []string
	for rows.Next() {
		var id, nativeID string
		if err := rows.Scan(&id, &nativeID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("expiring jobs of %s: %w", sourceID, err)
		}
		if _, ok := found[nativeID]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("expiring jobs of %s: %w", sourceID, err)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("expiring jobs of %s: %w", sourceID, err)
	}

	ts := formatTime(at)
	expired := 0
	for _, id := range stale {
		res, err := tx.ExecContext(ctx,
			"UPDATE jobs SET status = ?, expires_at = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(model.StatusExpired), ts, ts, id, string(model.StatusActive))
		if err != nil {
			return 0, fmt.Errorf("expiring job %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		expired += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("expiring jobs of %s: %w", sourceID, err)
	}
	return expired, nil
}

// PurgeExpired deletes EXPIRED jobs that expired before cutoff.
func (s *SQLiteStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		string(model.StatusExpired), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purging jobs expired before %v: %w", cutoff, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListJobs returns jobs matching q, newest published first.
func (s *SQLiteStore) ListJobs(ctx context.Context, q model.JobQuery) ([]model.Job, error) {
	var where []string
	var args []any
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.SourceID != "" {
		where = append(where, "source_id = ?")
		args = append(args, q.SourceID)
	}
	if q.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, q.CompanyID)
	}
	if q.Skill != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(jobs.skills) WHERE json_each.value = ? COLLATE NOCASE)")
		args = append(args, q.Skill)
	}

	query := "SELECT " + jobColumns + " FROM jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY published_at DESC, id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listing jobs: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// RegisterSource creates or updates a source. LastFetched is kept.
func (s *SQLiteStore) RegisterSource(ctx context.Context, src model.Source) error {
	if src.ID == "" {
		return fmt.Errorf("registering source: id is required")
	}
	cfg, err := json.Marshal(src.Config)
	if err != nil {
		return fmt.Errorf("encoding config of source %s: %w", src.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sources (id, name, type, config, enabled, company_website, company_logo)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			config = excluded.config,
			enabled = excluded.enabled,
			company_website = excluded.company_website,
			company_logo = excluded.company_logo`,
		src.ID, src.Name, string(src.Type), string(cfg), src.Enabled, src.CompanyWebsite, src.CompanyLogo,
	)
	if err != nil {
		return fmt.Errorf("registering source %s: %w", src.ID, err)
	}
	return nil
}

func (s *SQLiteStore) SetSourceEnabled(ctx context.Context, sourceID string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sources SET enabled = ? WHERE id = ?", enabled, sourceID)
	if err != nil {
		return fmt.Errorf("updating source %s: %w", sourceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s: %w", sourceID, ErrSourceNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, "")
}

func (s *SQLiteStore) ListEnabledSources(ctx context.Context) ([]model.Source, error) {
	return s.querySources(ctx, " WHERE enabled = 1")
}

func (s *SQLiteStore) querySources(ctx context.Context, where string) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, type, config, enabled, last_fetched, company_website, company_logo FROM sources"+where+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var out []model.Source
	for rows.Next() {
		var (
			src         model.Source
			typ, cfg    string
			lastFetched sql.NullString
		)
		if err := rows.Scan(&src.ID, &src.Name, &typ, &cfg, &src.Enabled, &lastFetched,
			&src.CompanyWebsite, &src.CompanyLogo); err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
		src.Type = model.SourceType(typ)
		if err := json.Unmarshal([]byte(cfg), &src.Config); err != nil {
			return nil, fmt.Errorf("decoding config of source %s: %w", src.ID, err)
		}
		if lastFetched.Valid {
			t, err := parseStoredTime(lastFetched.String)
			if err != nil {
				return nil, fmt.Errorf("decoding last_fetched of source %s: %w", src.ID, err)
			}
			src.LastFetched = &t
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkFetched(ctx context.Context, sourceID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sources SET last_fetched = ? WHERE id = ?", formatTime(at), sourceID)
	if err != nil {
		return fmt.Errorf("marking source %s fetched: %w", sourceID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s: %w", sourceID, ErrSourceNotFound)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.Job, error) {
	var (
		j                                     model.Job
		sourceType, jobType, level, workplace string
		skills, cycle, status                 string
		salaryMin, salaryMax                  sql.NullInt64
		createdAt, updatedAt, publishedAt     string
		expiresAt                             sql.NullString
	)
	err := row.Scan(&j.ID, &j.SourceID, &sourceType, &j.SourceNativeID, &j.CompanyID, &j.CompanyName,
		&j.Title, &j.Description, &j.Requirements, &j.Responsibilities, &j.Benefits,
		&jobType, &level, &workplace, &j.Location, &j.Country, &skills,
		&salaryMin, &salaryMax, &j.SalaryCurrency, &cycle, &j.ShowSalary,
		&j.ApplyURL, &status, &j.ViewCount, &j.ClickCount,
		&createdAt, &updatedAt, &publishedAt, &expiresAt)
	if err != nil {
		return model.Job{}, err
	}

	j.SourceType = model.SourceType(sourceType)
	j.JobType = model.JobType(jobType)
	j.ExperienceLevel = model.ExperienceLevel(level)
	j.WorkplaceType = model.WorkplaceType(workplace)
	j.SalaryCycle = model.SalaryCycle(cycle)
	j.Status = model.JobStatus(status)
	if salaryMin.Valid {
		j.SalaryMin = &salaryMin.Int64
	}
	if salaryMax.Valid {
		j.SalaryMax = &salaryMax.Int64
	}
	if err := json.Unmarshal([]byte(skills), &j.Skills); err != nil {
		return model.Job{}, fmt.Errorf("decoding skills: %w", err)
	}

	for _, f := range []struct {
		raw string
		dst *time.Time
	}{{createdAt, &j.CreatedAt}, {updatedAt, &j.UpdatedAt}, {publishedAt, &j.PublishedAt}} {
		if *f.dst, err = parseStoredTime(f.raw); err != nil {
			return model.Job{}, err
		}
	}
	if expiresAt.Valid {
		t, err := parseStoredTime(expiresAt.String)
		if err != nil {
			return model.Job{}, err
		}
		j.ExpiresAt = &t
	}
	return j, nil
}

func nonNilSkills(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}
