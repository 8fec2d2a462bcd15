package model

import (
	"time"
)

// Run is the state of one pipeline execution against one site.
//
// Pipeline steps receive the Run and fill it in: the discovery step sets
// DiscoveredURLs, the extraction steps feed the Collector, and the browser
// step stores the rendered HTML.
type Run struct {
	// ID is the database row ID once the run has been saved.
	ID int64 `json:"id,omitempty"`

	// Site is the source being scraped.
	Site Site `json:"site"`

	// Target is the start URL (Earth911) or zip code (BestBuy).
	Target string `json:"target"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended. Zero while running.
	FinishedAt time.Time `json:"finished_at"`

	// DiscoveredURLs is the frontier produced by pagination, in
	// discovery order. Empty for the browser variant.
	DiscoveredURLs []string `json:"discovered_urls,omitempty"`

	// HTML is the rendered page captured by the browser variant.
	HTML string `json:"-"`

	// ScreenshotPath is where the browser screenshot was written, if any.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// Collector accumulates the extracted records.
	Collector *Collector `json:"-"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true when the run stopped because its context ended.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error is the failure that ended the run early, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as text, kept for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRun creates a Run for the site and target with an empty Collector.
func NewRun(site Site, target string) *Run {
	return &Run{
		Site:           site,
		Target:         target,
		StartedAt:      time.Now(),
		DiscoveredURLs: make([]string, 0),
		Collector:      NewCollector(),
		PerformedSteps: make([]string, 0),
	}
}

// Fail records err as the reason the run ended.
func (r *Run) Fail(err error) {
	if err == nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Finish stamps the end time.
func (r *Run) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took, or how long it has been running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Records is shorthand for r.Collector.Records().
func (r *Run) Records() []Record {
	if r.Collector == nil {
		return nil
	}
	return r.Collector.Records()
}

// Stats is shorthand for r.Collector.Stats().
func (r *Run) Stats() CollectorStats {
	if r.Collector == nil {
		return CollectorStats{}
	}
	return r.Collector.Stats()
}

// Failed reports whether the run ended with an error.
func (r *Run) Failed() bool {
	return r.ErrorMessage != ""
}
