package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/remoteboard/internal/model"
)

// runStoreContract exercises the behavior every Store implementation shares.
// Ids are random so the suite can run against a shared database.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	seed := func(t *testing.T, s Store, sourceID string, nativeIDs ...string) (string, []model.Job) {
		t.Helper()
		c, err := s.FindOrCreateCompany(ctx, model.Company{Name: "Acme " + sourceID})
		if err != nil {
			t.Fatalf("FindOrCreateCompany: %v", err)
		}
		var jobs []model.Job
		for _, n := range nativeIDs {
			j := testJob(uuid.NewString(), sourceID, sourceID+"-"+n, c.ID)
			if err := s.UpsertJob(ctx, j); err != nil {
				t.Fatalf("UpsertJob: %v", err)
			}
			jobs = append(jobs, j)
		}
		return c.ID, jobs
	}

	t.Run("find missing job returns nil", func(t *testing.T) {
		s := open(t)
		got, err := s.FindJob(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("FindJob: %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("upsert twice keeps one row", func(t *testing.T) {
		s := open(t)
		src := "src-" + uuid.NewString()
		_, jobs := seed(t, s, src, "1")

		updated := jobs[0]
		updated.Title = "Staff Backend Engineer"
		if err := s.UpsertJob(ctx, updated); err != nil {
			t.Fatalf("second UpsertJob: %v", err)
		}

		got, err := s.FindJob(ctx, updated.ID)
		if err != nil || got == nil {
			t.Fatalf("FindJob: %v, %v", got, err)
		}
		if got.Title != "Staff Backend Engineer" {
			t.Errorf("expected updated row, got title=%q", got.Title)
		}
		if len(got.Skills) != 2 || got.Skills[0] != "Go" {
			t.Errorf("skills round trip: %v", got.Skills)
		}

		all, err := s.ListJobs(ctx, model.JobQuery{SourceID: src})
		if err != nil {
			t.Fatalf("ListJobs: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 stored job, got %d", len(all))
		}
	})

	t.Run("upsert keeps stored counters and creation times", func(t *testing.T) {
		s := open(t)
		src := "src-" + uuid.NewString()
		c, err := s.FindOrCreateCompany(ctx, model.Company{Name: "Acme " + src})
		if err != nil {
			t.Fatalf("FindOrCreateCompany: %v", err)
		}
		stored := testJob(uuid.NewString(), src, src+"-1", c.ID)
		stored.CreatedAt = stored.CreatedAt.Truncate(time.Second)
		stored.UpdatedAt = stored.CreatedAt
		stored.PublishedAt = stored.CreatedAt
		stored.ViewCount = 5
		stored.ClickCount = 2
		if err := s.UpsertJob(ctx, stored); err != nil {
			t.Fatalf("UpsertJob: %v", err)
		}

		// A copy read before the counters moved, re-ingested later.
		stale := stored
		stale.ViewCount = 0
		stale.ClickCount = 0
		stale.Title = "Principal Engineer"
		stale.CreatedAt = stored.CreatedAt.Add(48 * time.Hour)
		stale.PublishedAt = stored.PublishedAt.Add(48 * time.Hour)
		stale.UpdatedAt = stored.UpdatedAt.Add(48 * time.Hour)
		if err := s.UpsertJob(ctx, stale); err != nil {
			t.Fatalf("stale UpsertJob: %v", err)
		}

		got, err := s.FindJob(ctx, stored.ID)
		if err != nil || got == nil {
			t.Fatalf("FindJob: %v, %v", got, err)
		}
		if got.ViewCount != 5 || got.ClickCount != 2 {
			t.Errorf("counters = %d/%d, want 5/2", got.ViewCount, got.ClickCount)
		}
		if !got.CreatedAt.Equal(stored.CreatedAt) || !got.PublishedAt.Equal(stored.PublishedAt) {
			t.Errorf("created/published = %v/%v, want %v/%v", got.CreatedAt, got.PublishedAt, stored.CreatedAt, stored.PublishedAt)
		}
		if got.Title != "Principal Engineer" || !got.UpdatedAt.Equal(stale.UpdatedAt) {
			t.Errorf("content not refreshed: title=%q updated=%v", got.Title, got.UpdatedAt)
		}
	})

	t.Run("company resolved case-insensitively and backfilled", func(t *testing.T) {
		s := open(t)
		name := "Globex " + uuid.NewString()

		first, err := s.FindOrCreateCompany(ctx, model.Company{Name: name})
		if err != nil {
			t.Fatalf("FindOrCreateCompany: %v", err)
		}
		if first.ID == "" {
			t.Fatal("expected generated company id")
		}

		second, err := s.FindOrCreateCompany(ctx, model.Company{
			Name:    "  " + name + " ",
			Website: "https://globex.example",
			Logo:    "https://globex.example/logo.png",
		})
		if err != nil {
			t.Fatalf("FindOrCreateCompany: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("expected same company, got %s and %s", first.ID, second.ID)
		}
		if second.Website != "https://globex.example" {
			t.Errorf("expected website to be backfilled, got %q", second.Website)
		}

		third, err := s.FindOrCreateCompany(ctx, model.Company{Name: name, Website: "https://other.example"})
		if err != nil {
			t.Fatalf("FindOrCreateCompany: %v", err)
		}
		if third.Website != "https://globex.example" {
			t.Errorf("existing website must not be overwritten, got %q", third.Website)
		}
	})

	t.Run("expire jobs not in found set exactly once", func(t *testing.T) {
		s := open(t)
		srcA := "src-" + uuid.NewString()
		srcB := "src-" + uuid.NewString()
		_, jobsA := seed(t, s, srcA, "1", "2", "3")
		_, jobsB := seed(t, s, srcB, "1")

		at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
		n, err := s.ExpireJobsNotIn(ctx, srcA, []string{jobsA[0].SourceNativeID}, at)
		if err != nil {
			t.Fatalf("ExpireJobsNotIn: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 expired, got %d", n)
		}

		n, err = s.ExpireJobsNotIn(ctx, srcA, []string{jobsA[0].SourceNativeID}, at.Add(time.Hour))
		if err != nil {
			t.Fatalf("second ExpireJobsNotIn: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected no further transitions, got %d", n)
		}

		kept, _ := s.FindJob(ctx, jobsA[0].ID)
		if kept.Status != model.StatusActive || kept.ExpiresAt != nil {
			t.Errorf("found job must stay active, got %s", kept.Status)
		}
		gone, _ := s.FindJob(ctx, jobsA[1].ID)
		if gone.Status != model.StatusExpired {
			t.Errorf("expected EXPIRED, got %s", gone.Status)
		}
		if gone.ExpiresAt == nil || !gone.ExpiresAt.Equal(at) {
			t.Errorf("expected ExpiresAt %v, got %v", at, gone.ExpiresAt)
		}
		other, _ := s.FindJob(ctx, jobsB[0].ID)
		if other.Status != model.StatusActive {
			t.Errorf("other source's job must not change, got %s", other.Status)
		}
	})

	t.Run("expire with empty found set retires every active job", func(t *testing.T) {
		s := open(t)
		src := "src-" + uuid.NewString()
		_, jobs := seed(t, s, src, "1", "2")

		rejected := jobs[1]
		rejected.Status = model.StatusRejected
		if err := s.UpsertJob(ctx, rejected); err != nil {
			t.Fatalf("UpsertJob: %v", err)
		}

		n, err := s.ExpireJobsNotIn(ctx, src, nil, time.Now())
		if err != nil {
			t.Fatalf("ExpireJobsNotIn: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected only the ACTIVE job to expire, got %d", n)
		}
		got, _ := s.FindJob(ctx, rejected.ID)
		if got.Status != model.StatusRejected {
			t.Errorf("rejected job must keep its status, got %s", got.Status)
		}
	})

	t.Run("list jobs filters", func(t *testing.T) {
		s := open(t)
		src := "src-" + uuid.NewString()
		companyID, jobs := seed(t, s, src, "1", "2", "3")

		rust := jobs[2]
		rust.Skills = []string{"Rust"}
		rust.PublishedAt = rust.PublishedAt.Add(time.Hour)
		if err := s.UpsertJob(ctx, rust); err != nil {
			t.Fatalf("UpsertJob: %v", err)
		}
		if _, err := s.ExpireJobsNotIn(ctx, src, []string{jobs[1].SourceNativeID, jobs[2].SourceNativeID}, time.Now()); err != nil {
			t.Fatalf("ExpireJobsNotIn: %v", err)
		}

		active, err := s.ListJobs(ctx, model.JobQuery{SourceID: src, Status: model.StatusActive})
		if err != nil {
			t.Fatalf("ListJobs: %v", err)
		}
		if len(active) != 2 {
			t.Fatalf("expected 2 active jobs, got %d", len(active))
		}
		if active[0].ID != rust.ID {
			t.Errorf("expected newest published first, got %s", active[0].ID)
		}

		goJobs, err := s.ListJobs(ctx, model.JobQuery{SourceID: src, Skill: "go"})
		if err != nil {
			t.Fatalf("ListJobs: %v", err)
		}
		if len(goJobs) != 2 {
			t.Errorf("expected 2 jobs with skill Go, got %d", len(goJobs))
		}

		byCompany, err := s.ListJobs(ctx, model.JobQuery{CompanyID: companyID, Limit: 1})
		if err != nil {
			t.Fatalf("ListJobs: %v", err)
		}
		if len(byCompany) != 1 {
			t.Errorf("expected limit 1, got %d", len(byCompany))
		}
	})

	t.Run("purge expired", func(t *testing.T) {
		s := open(t)
		src := "src-" + uuid.NewString()
		_, jobs := seed(t, s, src, "1", "2")

		old := time.Now().Add(-60 * 24 * time.Hour)
		if _, err := s.ExpireJobsNotIn(ctx, src, []string{jobs[0].SourceNativeID}, old); err != nil {
			t.Fatalf("ExpireJobsNotIn: %v", err)
		}
		n, err := s.PurgeExpired(ctx, time.Now().Add(-30*24*time.Hour))
		if err != nil {
			t.Fatalf("PurgeExpired: %v", err)
		}
		if n < 1 {
			t.Fatalf("expected at least 1 purged, got %d", n)
		}
		if got, _ := s.FindJob(ctx, jobs[1].ID); got != nil {
			t.Error("expected expired job to be purged")
		}
		if got, _ := s.FindJob(ctx, jobs[0].ID); got == nil {
			t.Error("active job must survive purge")
		}
	})

	t.Run("source registry", func(t *testing.T) {
		s := open(t)
		id := "src-" + uuid.NewString()
		src := model.Source{
			ID:      id,
			Name:    "Acme",
			Type:    model.SourceLever,
			Config:  map[string]string{"site": "acme", "region": "eu"},
			Enabled: true,
		}
		if err := s.RegisterSource(ctx, src); err != nil {
			t.Fatalf("RegisterSource: %v", err)
		}

		at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		if err := s.MarkFetched(ctx, id, at); err != nil {
			t.Fatalf("MarkFetched: %v", err)
		}

		src.Name = "Acme Inc"
		if err := s.RegisterSource(ctx, src); err != nil {
			t.Fatalf("re-RegisterSource: %v", err)
		}

		got := findSource(t, s, id)
		if got == nil {
			t.Fatal("registered source not listed")
		}
		if got.Name != "Acme Inc" || got.Config["region"] != "eu" || got.Type != model.SourceLever {
			t.Errorf("unexpected source %+v", got)
		}
		if got.LastFetched == nil || !got.LastFetched.Equal(at) {
			t.Errorf("re-registration must keep LastFetched, got %v", got.LastFetched)
		}

		if err := s.SetSourceEnabled(ctx, id, false); err != nil {
			t.Fatalf("SetSourceEnabled: %v", err)
		}
		enabled, err := s.ListEnabledSources(ctx)
		if err != nil {
			t.Fatalf("ListEnabledSources: %v", err)
		}
		for _, e := range enabled {
			if e.ID == id {
				t.Error("disabled source listed as enabled")
			}
		}

		missing := "missing-" + uuid.NewString()
		if err := s.SetSourceEnabled(ctx, missing, true); !errors.Is(err, ErrSourceNotFound) {
			t.Errorf("expected ErrSourceNotFound, got %v", err)
		}
		if err := s.MarkFetched(ctx, missing, at); !errors.Is(err, ErrSourceNotFound) {
			t.Errorf("expected ErrSourceNotFound, got %v", err)
		}
	})
}

func findSource(t *testing.T, s Store, id string) *model.Source {
	t.Helper()
	all, err := s.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	for _, src := range all {
		if src.ID == id {
			return &src
		}
	}
	return nil
}
