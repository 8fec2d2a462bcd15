// Package report writes extraction runs to files and terminals.
//
// Writers for the supported formats:
//   - CSVWriter: tabular export with a fixed column order per site
//   - JSONWriter: structured export keeping multi-valued fields as arrays
//   - MarkdownWriter: human-readable run summary and records table
//
// Writers implement the Writer interface. SaveFiles writes the default CSV
// and JSON files for a run.
package report
