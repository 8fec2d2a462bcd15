package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestRecordIdentified tests the name-or-address rule.
func TestRecordIdentified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record Record
		want   bool
	}{
		{name: "name only", record: Record{Name: "Best Buy Chelsea"}, want: true},
		{name: "address only", record: Record{Address: "60 W 23rd St"}, want: true},
		{name: "both", record: Record{Name: "A", Address: "B"}, want: true},
		{name: "neither but other fields populated", record: Record{Distance: "2.3 miles away", Phone: "555-0100"}, want: false},
		{name: "zero value", record: Record{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.record.Identified(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestCollector tests ordering, numbering and the discard invariant.
func TestCollector(t *testing.T) {
	t.Parallel()

	t.Run("unidentified records never reach the final sequence", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		c.Add(Record{Name: "First"})
		c.Add(Record{Hours: "Open until 9 pm", Distance: "1.0 miles away", Materials: []string{"TVs"}})
		c.Add(Record{Address: "123 Main St"})

		for _, rec := range c.Records() {
			if !rec.Identified() {
				t.Errorf("collector retained unidentified record %+v", rec)
			}
		}

		want := CollectorStats{Attempted: 3, Succeeded: 2, Discarded: 1}
		if diff := cmp.Diff(want, c.Stats()); diff != "" {
			t.Errorf("stats mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("retained records keep insertion order and get sequential identifiers", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		c.Add(Record{Name: "A", Identifier: 99})
		c.Add(Record{})
		c.Add(Record{Name: "B"})
		c.Add(Record{Name: "A"})

		got := c.Records()
		want := []Record{
			{Identifier: 1, Name: "A"},
			{Identifier: 2, Name: "B"},
			{Identifier: 3, Name: "A"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Add reports whether the record was kept", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		if !c.Add(Record{Name: "kept"}) {
			t.Error("expected identified record to be kept")
		}
		if c.Add(Record{}) {
			t.Error("expected empty record to be discarded")
		}
		if got := len(c.Records()); got != 1 {
			t.Errorf("expected 1 record, got %d", got)
		}
	})

	t.Run("skipped URLs are tracked separately", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		c.Skip("https://example.com/a", errors.New("boom"))
		c.Skip("https://example.com/b", nil)

		skipped := c.SkippedURLs()
		if len(skipped) != 2 {
			t.Fatalf("expected 2 skipped URLs, got %d", len(skipped))
		}
		if skipped[0].Reason != "boom" {
			t.Errorf("expected reason 'boom', got %q", skipped[0].Reason)
		}
		if skipped[1].Reason != "" {
			t.Errorf("expected empty reason, got %q", skipped[1].Reason)
		}
		if c.Stats().Skipped != 2 {
			t.Errorf("expected Skipped=2, got %d", c.Stats().Skipped)
		}
		if c.Stats().Attempted != 0 {
			t.Errorf("skips must not count as attempts, got %d", c.Stats().Attempted)
		}
	})
}

// TestParseSite tests site name parsing.
func TestParseSite(t *testing.T) {
	t.Parallel()

	t.Run("known names are case-insensitive", func(t *testing.T) {
		t.Parallel()
		for input, want := range map[string]Site{
			"earth911":  SiteEarth911,
			"Earth911":  SiteEarth911,
			" bestbuy ": SiteBestBuy,
			"BESTBUY":   SiteBestBuy,
		} {
			got, err := ParseSite(input)
			if err != nil {
				t.Errorf("ParseSite(%q) returned error: %v", input, err)
				continue
			}
			if got != want {
				t.Errorf("ParseSite(%q) = %v, expected %v", input, got, want)
			}
		}
	})

	t.Run("unknown name returns ErrUnknownSite", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSite("walmart")
		if !errors.Is(err, ErrUnknownSite) {
			t.Errorf("expected ErrUnknownSite, got %v", err)
		}
	})

	t.Run("site round-trips through JSON as its name", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(SiteBestBuy)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(data) != `"bestbuy"` {
			t.Errorf("expected \"bestbuy\", got %s", data)
		}
		var s Site
		if err := json.Unmarshal(data, &s); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if s != SiteBestBuy {
			t.Errorf("expected SiteBestBuy, got %v", s)
		}
	})
}

// TestRun tests Run lifecycle helpers.
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("new run has an empty collector", func(t *testing.T) {
		t.Parallel()
		run := NewRun(SiteEarth911, "https://search.earth911.com/?what=Electronics")
		if run.Collector == nil {
			t.Fatal("expected collector to be initialized")
		}
		if len(run.Records()) != 0 {
			t.Errorf("expected no records, got %d", len(run.Records()))
		}
		if run.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
	})

	t.Run("Fail records the error message", func(t *testing.T) {
		t.Parallel()
		run := NewRun(SiteBestBuy, "10001")
		run.Fail(nil)
		if run.Failed() {
			t.Error("Fail(nil) must not mark the run as failed")
		}
		run.Fail(errors.New("input not found"))
		if !run.Failed() || run.ErrorMessage != "input not found" {
			t.Errorf("unexpected error state: %q", run.ErrorMessage)
		}
	})

	t.Run("Duration uses FinishedAt once set", func(t *testing.T) {
		t.Parallel()
		run := NewRun(SiteBestBuy, "10001")
		run.StartedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		run.FinishedAt = run.StartedAt.Add(90 * time.Second)
		if run.Duration() != 90*time.Second {
			t.Errorf("expected 90s, got %v", run.Duration())
		}
	})
}
