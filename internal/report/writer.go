package report

import (
	"io"

	"github.com/nao1215/listingscan/internal/model"
)

// Writer defines the interface for run output.
// Implementations write a run's records or its summary in one format.
type Writer interface {
	// Write outputs the run's records.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.Run) (int, error)

	// WriteSummary outputs only the run summary: counts, skipped URLs
	// and the failure, if any.
	WriteSummary(run *model.Run) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Summary is the flat description of a run shared by the summary writers.
type Summary struct {
	ID          int64              `json:"id,omitempty"`
	Site        model.Site         `json:"site"`
	Target      string             `json:"target"`
	StartedAt   string             `json:"started_at"`
	Duration    string             `json:"duration"`
	Attempted   int                `json:"attempted"`
	Succeeded   int                `json:"succeeded"`
	Discarded   int                `json:"discarded"`
	Skipped     []model.SkippedURL `json:"skipped"`
	Steps       []string           `json:"steps"`
	Screenshot  string             `json:"screenshot,omitempty"`
	Cancelled   bool               `json:"cancelled,omitempty"`
	Error       string             `json:"error,omitempty"`
	Discovered  int                `json:"discovered"`
	RecordCount int                `json:"records"`
}

// NewSummary flattens run.
func NewSummary(run *model.Run) Summary {
	stats := run.Stats()
	skipped := make([]model.SkippedURL, 0)
	if run.Collector != nil {
		skipped = append(skipped, run.Collector.SkippedURLs()...)
	}
	steps := append(make([]string, 0, len(run.PerformedSteps)), run.PerformedSteps...)

	return Summary{
		ID:          run.ID,
		Site:        run.Site,
		Target:      run.Target,
		StartedAt:   run.StartedAt.Format(timeLayout),
		Duration:    run.Duration().Round(durationPrecision).String(),
		Attempted:   stats.Attempted,
		Succeeded:   stats.Succeeded,
		Discarded:   stats.Discarded,
		Skipped:     skipped,
		Steps:       steps,
		Screenshot:  run.ScreenshotPath,
		Cancelled:   run.Cancelled,
		Error:       run.ErrorMessage,
		Discovered:  len(run.DiscoveredURLs),
		RecordCount: len(run.Records()),
	}
}
