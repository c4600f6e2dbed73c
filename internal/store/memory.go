package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/remoteboard/internal/model"
)

// MemoryStore keeps jobs, companies and sources in process memory. It backs
// dry runs and tests; nothing survives the process.
type MemoryStore struct {
	mu        sync.Mutex
	jobs      map[string]model.Job
	companies map[string]model.Company // keyed by lower-cased name
	sources   map[string]model.Source
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]model.Job),
		companies: make(map[string]model.Company),
		sources:   make(map[string]model.Source),
	}
}

func (s *MemoryStore) FindJob(_ context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	j.Skills = slices.Clone(j.Skills)
	return &j, nil
}

func (s *MemoryStore) UpsertJob(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.jobs {
		if id != job.ID && other.SourceType == job.SourceType && other.SourceNativeID == job.SourceNativeID {
			return fmt.Errorf("upserting job %s: %s/%s already stored as %s",
				job.ID, job.SourceType, job.SourceNativeID, id)
		}
	}
	if existing, ok := s.jobs[job.ID]; ok {
		job.ViewCount = existing.ViewCount
		job.ClickCount = existing.ClickCount
		job.CreatedAt = existing.CreatedAt
		job.PublishedAt = existing.PublishedAt
	}
	job.Skills = slices.Clone(job.Skills)
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) FindOrCreateCompany(_ context.Context, c model.Company) (model.Company, error) {
	key := strings.ToLower(strings.TrimSpace(c.Name))
	if key == "" {
		return model.Company{}, fmt.Errorf("company name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.companies[key]; ok {
		existing = fillCompany(existing, c)
		s.companies[key] = existing
		return existing, nil
	}
	c.ID = uuid.NewString()
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = time.Now().UTC()
	s.companies[key] = c
	return c, nil
}

func (s *MemoryStore) ExpireJobsNotIn(_ context.Context, sourceID string, foundIDs []string, at time.Time) (int, error) {
	found := foundSet(foundIDs)

	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for id, j := range s.jobs {
		if j.SourceID != sourceID || j.Status != model.StatusActive {
			continue
		}
		if _, ok := found[j.SourceNativeID]; ok {
			continue
		}
		expiresAt := at.UTC()
		j.Status = model.StatusExpired
		j.ExpiresAt = &expiresAt
		j.UpdatedAt = expiresAt
		s.jobs[id] = j
		expired++
	}
	return expired, nil
}

// PurgeExpired deletes EXPIRED jobs that expired before cutoff.
func (s *MemoryStore) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, j := range s.jobs {
		if j.Status == model.StatusExpired && j.ExpiresAt != nil && j.ExpiresAt.Before(cutoff) {
			delete(s.jobs, id)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, q model.JobQuery) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Job
	for _, j := range s.jobs {
		if matchesQuery(j, q) {
			j.Skills = slices.Clone(j.Skills)
			out = append(out, j)
		}
	}
	sortJobs(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) RegisterSource(_ context.Context, src model.Source) error {
	if src.ID == "" {
		return fmt.Errorf("registering source: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sources[src.ID]; ok {
		src.LastFetched = existing.LastFetched
	}
	src.Config = maps.Clone(src.Config)
	s.sources[src.ID] = src
	return nil
}

func (s *MemoryStore) SetSourceEnabled(_ context.Context, sourceID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[sourceID]
	if !ok {
		return fmt.Errorf("source %s: %w", sourceID, ErrSourceNotFound)
	}
	src.Enabled = enabled
	s.sources[sourceID] = src
	return nil
}

func (s *MemoryStore) ListSources(_ context.Context) ([]model.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Source, 0, len(s.sources))
	for _, src := range s.sources {
		src.Config = maps.Clone(src.Config)
		out = append(out, src)
	}
	slices.SortFunc(out, func(a, b model.Source) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) ListEnabledSources(ctx context.Context) ([]model.Source, error) {
	all, err := s.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	return enabledOnly(all), nil
}

func (s *MemoryStore) MarkFetched(_ context.Context, sourceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[sourceID]
	if !ok {
		return fmt.Errorf("source %s: %w", sourceID, ErrSourceNotFound)
	}
	t := at.UTC()
	src.LastFetched = &t
	s.sources[sourceID] = src
	return nil
}

func (s *MemoryStore) Close() error { return nil }
