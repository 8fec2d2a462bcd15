package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nao1215/listingscan/internal/model"
)

// CSVWriter outputs a run as comma-separated values with a fixed column
// order per site. Multi-valued fields are joined with "; ".
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs a header row followed by one row per record.
func (w *CSVWriter) Write(run *model.Run) (int, error) {
	rows := [][]string{Columns(run.Site)}
	for _, rec := range run.Records() {
		rows = append(rows, tabularRow(run.Site, rec))
	}
	return w.writeAll(rows)
}

// WriteSummary outputs the run summary as key,value rows.
func (w *CSVWriter) WriteSummary(run *model.Run) (int, error) {
	s := NewSummary(run)
	rows := [][]string{
		{"key", "value"},
		{"site", s.Site.String()},
		{"target", s.Target},
		{"started_at", s.StartedAt},
		{"duration", s.Duration},
		{"discovered", strconv.Itoa(s.Discovered)},
		{"attempted", strconv.Itoa(s.Attempted)},
		{"succeeded", strconv.Itoa(s.Succeeded)},
		{"discarded", strconv.Itoa(s.Discarded)},
		{"skipped", strconv.Itoa(len(s.Skipped))},
		{"error", s.Error},
	}
	return w.writeAll(rows)
}

// writeAll encodes rows into memory first so a failed encode writes
// nothing.
func (w *CSVWriter) writeAll(rows [][]string) (int, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
