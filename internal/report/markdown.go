package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/listingscan/internal/model"
)

// maxCellLen bounds table cell width so long addresses and material
// lists keep the table readable.
const maxCellLen = 60

// MarkdownWriter outputs runs in Markdown format.
// This format is meant for terminals, issues and wikis.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary followed by a table of the records.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	w.writeHeader(md, run)
	w.writeCounts(md, run)
	w.writeRecords(md, run)
	w.writeSkipped(md, run)
	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteSummary outputs the summary without the records.
func (w *MarkdownWriter) WriteSummary(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	w.writeHeader(md, run)
	w.writeCounts(md, run)
	w.writeSkipped(md, run)
	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeHeader writes the run header with its basic properties.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	s := NewSummary(run)

	md.H1("listingscan: " + s.Site.String())
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + s.Target + "`"},
			{"Started", s.StartedAt},
			{"Duration", s.Duration},
			{"Steps", strconv.Itoa(len(s.Steps))},
			{"Status", w.statusText(run)},
		},
	})
	md.PlainText("")

	if run.ScreenshotPath != "" {
		md.PlainTextf("Screenshot saved to `%s`.", run.ScreenshotPath)
		md.PlainText("")
	}
}

// statusText returns the status text based on run state.
func (w *MarkdownWriter) statusText(run *model.Run) string {
	switch {
	case run.Cancelled:
		return "Cancelled (partial results)"
	case run.Failed():
		return "Error - " + run.ErrorMessage
	default:
		return "Complete"
	}
}

// writeCounts writes the collector counts and an alert for the outcome.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, run *model.Run) {
	s := NewSummary(run)

	md.H2("Counts")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Discovered URLs", strconv.Itoa(s.Discovered)},
			{"Attempted", strconv.Itoa(s.Attempted)},
			{"Retained", strconv.Itoa(s.Succeeded)},
			{"Discarded", strconv.Itoa(s.Discarded)},
			{"Skipped", strconv.Itoa(len(s.Skipped))},
		},
	})
	md.PlainText("")

	if s.Attempted > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case run.Failed():
		md.Cautionf("The run stopped early: %s", run.ErrorMessage)
	case s.Succeeded == 0:
		md.Warningf("No records were extracted.")
	case len(s.Skipped) > 0:
		md.Importantf("%d URL(s) could not be fetched and were skipped.", len(s.Skipped))
	default:
		md.Tip("Every attempted record was processed.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of retained and discarded records.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Extraction Outcome"),
		piechart.WithShowData(true),
	)

	if s.Succeeded > 0 {
		chart.LabelAndIntValue("Retained", uint64(s.Succeeded)) //nolint:gosec // counts are non-negative
	}
	if s.Discarded > 0 {
		chart.LabelAndIntValue("Discarded", uint64(s.Discarded)) //nolint:gosec // counts are non-negative
	}
	if n := len(s.Skipped); n > 0 {
		chart.LabelAndIntValue("Skipped", uint64(n)) //nolint:gosec // counts are non-negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRecords writes the records table in the site's column order.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, run *model.Run) {
	md.H2("Records")
	md.PlainText("")

	records := run.Records()
	if len(records) == 0 {
		md.PlainText("No records.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := tabularRow(run.Site, rec)
		for j := range row {
			row[j] = truncateString(row[j], maxCellLen)
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{
		Header: Columns(run.Site),
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSkipped lists the URLs given up on.
func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, run *model.Run) {
	if run.Collector == nil || len(run.Collector.SkippedURLs()) == 0 {
		return
	}

	md.H2("Skipped URLs")
	md.PlainText("")

	rows := make([][]string, 0, len(run.Collector.SkippedURLs()))
	for _, s := range run.Collector.SkippedURLs() {
		rows = append(rows, []string{s.URL, truncateString(s.Reason, maxCellLen)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [listingscan](https://github.com/nao1215/listingscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
