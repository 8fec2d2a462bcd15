package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/listingscan/internal/model"
)

// JSONWriter outputs runs in JSON format.
// Records are written as an array of per-site objects with multi-valued
// fields kept as arrays. HTML characters and non-ASCII text are written
// as is.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run's records as a JSON array.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.WriteValue(structuredRows(run.Site, run.Records()))
}

// WriteSummary outputs the run summary as a JSON object.
func (w *JSONWriter) WriteSummary(run *model.Run) (int, error) {
	return w.WriteValue(NewSummary(run))
}

// WriteValue encodes any value with the writer's settings.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}

	// Encode appends the trailing newline.
	if err := enc.Encode(v); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}
