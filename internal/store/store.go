package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/amishk599/remoteboard/internal/model"
)

// ErrSourceNotFound is returned when an operation names an unknown source.
var ErrSourceNotFound = errors.New("source not found")

// Store is everything the pipeline and its CLI need from persistence.
type Store interface {
	model.JobStore
	model.JobQuerier
	model.SourceAdmin
	// PurgeExpired deletes EXPIRED jobs whose expiry is older than cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open returns the store selected by driver. path is used by sqlite and dsn
// by postgres.
func Open(ctx context.Context, driver, path, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(path)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func foundSet(ids []string) map[string]struct{} {
	return lo.Associate(ids, func(id string) (string, struct{}) {
		return id, struct{}{}
	})
}

// fillCompany attaches website and logo to a stored company lacking them.
func fillCompany(existing, incoming model.Company) model.Company {
	if existing.Website == "" {
		existing.Website = incoming.Website
	}
	if existing.Logo == "" {
		existing.Logo = incoming.Logo
	}
	return existing
}

func enabledOnly(sources []model.Source) []model.Source {
	return lo.Filter(sources, func(s model.Source, _ int) bool { return s.Enabled })
}

func matchesQuery(j model.Job, q model.JobQuery) bool {
	if q.Status != "" && j.Status != q.Status {
		return false
	}
	if q.SourceID != "" && j.SourceID != q.SourceID {
		return false
	}
	if q.CompanyID != "" && j.CompanyID != q.CompanyID {
		return false
	}
	if q.Skill != "" && !lo.ContainsBy(j.Skills, func(s string) bool { return strings.EqualFold(s, q.Skill) }) {
		return false
	}
	return true
}

// sortJobs orders newest published first, id as tie-breaker.
func sortJobs(jobs []model.Job) {
	slices.SortFunc(jobs, func(a, b model.Job) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseStoredTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
