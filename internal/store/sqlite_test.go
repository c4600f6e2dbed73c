package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/remoteboard/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newTestStore(t) })
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	c, err := s.FindOrCreateCompany(ctx, model.Company{Name: "Acme"})
	if err != nil {
		t.Fatalf("FindOrCreateCompany: %v", err)
	}
	job := testJob("j1", "src-a", "101", c.ID)
	if err := s.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()

	got, err := s.FindJob(ctx, "j1")
	if err != nil {
		t.Fatalf("FindJob: %v", err)
	}
	if got == nil {
		t.Fatal("expected job to survive reopen")
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, job.CreatedAt)
	}
	if got.SalaryMin == nil || *got.SalaryMin != 90000 {
		t.Errorf("SalaryMin = %v, want 90000", got.SalaryMin)
	}
	if got.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil", got.ExpiresAt)
	}
}

func TestSQLiteStore_RejectsDuplicateNativeID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertJob(ctx, testJob("j1", "src-a", "101", "c1")); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}
	// Same (source_type, source_native_id) under a different id violates the unique index.
	if err := s.UpsertJob(ctx, testJob("j2", "src-a", "101", "c1")); err == nil {
		t.Fatal("expected unique constraint error for duplicate native id")
	}
}

func TestSQLiteStore_UpsertKeepsConcurrentCounterIncrements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertJob(ctx, testJob("j1", "src-a", "101", "c1")); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}
	read, err := s.FindJob(ctx, "j1")
	if err != nil || read == nil {
		t.Fatalf("FindJob: %v, %v", read, err)
	}

	// The serving layer counts a view after the ingester has read the row.
	if _, err := s.db.ExecContext(ctx, "UPDATE jobs SET view_count = view_count + 5 WHERE id = ?", "j1"); err != nil {
		t.Fatalf("increment: %v", err)
	}

	read.Title = "Senior Backend Engineer"
	if err := s.UpsertJob(ctx, *read); err != nil {
		t.Fatalf("re-ingest UpsertJob: %v", err)
	}

	got, err := s.FindJob(ctx, "j1")
	if err != nil || got == nil {
		t.Fatalf("FindJob: %v, %v", got, err)
	}
	if got.ViewCount != 5 {
		t.Errorf("ViewCount = %d, want 5", got.ViewCount)
	}
	if got.Title != "Senior Backend Engineer" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", "", ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), DriverMemory, "", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", s)
	}
}

func testJob(id, sourceID, nativeID, companyID string) model.Job {
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	min, max := int64(90000), int64(120000)
	return model.Job{
		ID:              id,
		SourceID:        sourceID,
		SourceType:      model.SourceGreenhouse,
		SourceNativeID:  nativeID,
		CompanyID:       companyID,
		CompanyName:     "Acme",
		Title:           "Backend Engineer",
		Description:     "Build APIs in Go.",
		JobType:         model.JobTypeFullTime,
		ExperienceLevel: model.ExperienceMid,
		WorkplaceType:   model.WorkplaceTypeRemote,
		Location:        "Remote - LATAM",
		Skills:          []string{"Go", "PostgreSQL"},
		SalaryMin:       &min,
		SalaryMax:       &max,
		SalaryCurrency:  "USD",
		SalaryCycle:     model.CycleYearly,
		ShowSalary:      true,
		ApplyURL:        "https://example.com/" + nativeID,
		Status:          model.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
		PublishedAt:     now,
	}
}
