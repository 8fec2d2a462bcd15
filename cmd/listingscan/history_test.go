package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/listingscan/internal/database"
	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/report"
)

// setupHistoryDB stores one run per site and returns the database
// directory and the BestBuy run ID.
func setupHistoryDB(t *testing.T) (string, int64) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	earth := model.NewRun(model.SiteEarth911, "https://search.earth911.com/?what=Electronics")
	earth.Fail(errors.New("listing page unavailable"))
	earth.Finish()
	if err := db.SaveRun(context.Background(), earth); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	stores := model.NewRun(model.SiteBestBuy, "10001")
	stores.Collector.Add(model.Record{Name: "Union Square", Address: "52 E 14th St, New York, NY 10003"})
	stores.Collector.Add(model.Record{Hours: "Open until 9 pm"})
	stores.Finish()
	if err := db.SaveRun(context.Background(), stores); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	return dir, stores.ID
}

// runHistory executes the history command with args.
func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewHistoryCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestHistoryCmd tests listing and showing stored runs.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dbDir, storeRunID := setupHistoryDB(t)
	runArg := strconv.FormatInt(storeRunID, 10)

	// Subtests share one database file and run in order.
	t.Run("lists runs with status", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Runs (2)", "bestbuy", "earth911", "complete", "failed: listing page unavailable"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("filters by site as json", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dbDir, "--site", "bestbuy", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var runs []database.RunSummary
		if err := json.Unmarshal([]byte(out), &runs); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(runs) != 1 || runs[0].Site != model.SiteBestBuy {
			t.Errorf("expected one bestbuy run, got %+v", runs)
		}
		if runs[0].Stats.Discarded != 1 {
			t.Errorf("expected 1 discarded record, got %d", runs[0].Stats.Discarded)
		}
	})

	t.Run("shows one run as markdown", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dbDir, "--run", runArg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# listingscan: bestbuy", "## Records", "Union Square"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("exports a run", func(t *testing.T) {
		exportDir := t.TempDir()
		if _, err := runHistory(t, "--db-dir", dbDir, "--run", runArg, "--export", exportDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(exportDir, report.BestBuyCSVFile))
		if err != nil {
			t.Fatalf("expected exported csv: %v", err)
		}
		if !strings.Contains(string(data), "Union Square") {
			t.Errorf("expected the store in the export, got:\n%s", data)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := runHistory(t, "--db-dir", dbDir, "--run", "9999")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

// TestHistoryCmdErrors tests flag validation and a missing database.
func TestHistoryCmdErrors(t *testing.T) {
	t.Parallel()

	t.Run("export requires a run", func(t *testing.T) {
		t.Parallel()

		_, err := runHistory(t, "--db-dir", t.TempDir(), "--export", t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "--export requires --run") {
			t.Errorf("expected --export error, got %v", err)
		}
	})

	t.Run("unknown site", func(t *testing.T) {
		t.Parallel()

		_, err := runHistory(t, "--site", "walmart")
		if !errors.Is(err, model.ErrUnknownSite) {
			t.Errorf("expected ErrUnknownSite, got %v", err)
		}
	})

	t.Run("missing database is not created", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "none")
		if _, err := runHistory(t, "--db-dir", dir); err == nil {
			t.Error("expected error for missing database")
		}
		if _, err := os.Stat(filepath.Join(dir, database.FileName)); !os.IsNotExist(err) {
			t.Errorf("expected no database file, got %v", err)
		}
	})
}

// TestRunStatus tests the status column.
func TestRunStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		run  database.RunSummary
		want string
	}{
		{"complete", database.RunSummary{}, "complete"},
		{"cancelled wins over error", database.RunSummary{Cancelled: true, Error: "x"}, "cancelled"},
		{"long error is truncated", database.RunSummary{Error: strings.Repeat("e", 60)}, "failed: " + strings.Repeat("e", 37) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := runStatus(tt.run); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
