package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/listingscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RecordDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// newStoreRun creates a finished BestBuy run with one retained and one
// discarded record.
func newStoreRun(started time.Time) *model.Run {
	run := model.NewRun(model.SiteBestBuy, "10001")
	run.StartedAt = started
	run.Collector.Add(model.Record{
		Name:     "Chelsea (W 23rd St)",
		Address:  "60 W 23rd St, New York, NY 10010",
		Hours:    "Open until 9 pm",
		Distance: "0.4 miles away",
	})
	run.Collector.Add(model.Record{Hours: "Open until 8 pm"})
	run.PerformedSteps = []string{"store-search", "store-extract"}
	run.FinishedAt = started.Add(3 * time.Second)
	return run
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := db.SaveRun(context.Background(), newStoreRun(time.Now())); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), model.SiteUnknown, 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("expected 1 run, got %d", len(runs))
		}
	})
}

// TestSaveRun tests storing a run with its records.
func TestSaveRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	run := newStoreRun(started)
	run.Collector.Skip("https://example.com/gone", errors.New("fetch exhausted"))
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run ID to be set")
	}

	got, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	want := RunSummary{
		ID:         run.ID,
		Site:       model.SiteBestBuy,
		Target:     "10001",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Stats:      model.CollectorStats{Attempted: 2, Succeeded: 1, Discarded: 1, Skipped: 1},
		Skipped:    []model.SkippedURL{{URL: "https://example.com/gone", Reason: "fetch exhausted"}},
		Steps:      []string{"store-search", "store-extract"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	records, err := db.GetRecords(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get records: %v", err)
	}
	if diff := cmp.Diff(run.Records(), records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

// TestGetRecords tests material round trips and ordering.
func TestGetRecords(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := model.NewRun(model.SiteEarth911, "https://search.earth911.com/?what=Electronics")
	run.Collector.Add(model.Record{Name: "A", Materials: []string{"Computers", "Computers", "TVs"}})
	run.Collector.Add(model.Record{Address: "1 Main St"})
	run.Finish()
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	records, err := db.GetRecords(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if diff := cmp.Diff([]string{"Computers", "Computers", "TVs"}, records[0].Materials); diff != "" {
		t.Errorf("materials mismatch (-want +got):\n%s", diff)
	}
	if records[1].Identifier != 2 || records[1].Address != "1 Main St" {
		t.Errorf("unexpected second record: %+v", records[1])
	}

	t.Run("unknown run has no records", func(t *testing.T) {
		t.Parallel()

		records, err := db.GetRecords(ctx, 9999)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})
}

// TestListRuns tests history listing.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		if err := db.SaveRun(ctx, newStoreRun(base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	earth := model.NewRun(model.SiteEarth911, "https://search.earth911.com/")
	earth.StartedAt = base.Add(-time.Hour)
	earth.Fail(errors.New("boom"))
	earth.Finish()
	if err := db.SaveRun(ctx, earth); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	t.Run("newest first across sites", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, model.SiteUnknown, 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 4 {
			t.Fatalf("expected 4 runs, got %d", len(runs))
		}
		if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("expected newest run first, got %v", runs[0].StartedAt)
		}
		if runs[3].Site != model.SiteEarth911 || runs[3].Error != "boom" {
			t.Errorf("unexpected oldest run: %+v", runs[3])
		}
	})

	t.Run("filters by site and limit", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, model.SiteBestBuy, 2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		for _, r := range runs {
			if r.Site != model.SiteBestBuy {
				t.Errorf("expected bestbuy, got %v", r.Site)
			}
		}
	})
}

// TestGetRun tests lookups of missing runs.
func TestGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	_, err := db.GetRun(context.Background(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339 nano", "2024-05-01T12:00:00.5Z", time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC)},
		{"sqlite default", "2024-05-01 12:00:00", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"invalid", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestRestore tests that a stored run renders with its original counters.
func TestRestore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := model.NewRun(model.SiteEarth911, "https://search.earth911.com/?what=Electronics")
	run.DiscoveredURLs = []string{"https://search.earth911.com/program/1", "https://search.earth911.com/program/2"}
	run.Collector.Add(model.Record{Name: "Green Planet", Materials: []string{"Computers"}})
	run.Collector.Add(model.Record{})
	run.Collector.Skip("https://search.earth911.com/program/3", errors.New("fetch exhausted"))
	run.PerformedSteps = []string{"discover", "detail"}
	run.Finish()
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	summary, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	records, err := db.GetRecords(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get records: %v", err)
	}

	restored := summary.Restore(records)
	if diff := cmp.Diff(run.Stats(), restored.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(run.DiscoveredURLs, restored.DiscoveredURLs); diff != "" {
		t.Errorf("discovered mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(run.Records(), restored.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if restored.ID != run.ID || restored.Failed() {
		t.Errorf("unexpected restored run: id=%d failed=%v", restored.ID, restored.Failed())
	}
}
