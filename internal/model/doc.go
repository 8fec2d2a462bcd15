// Package model defines the data structures shared by the scraping pipeline.
//
// This package contains the following main types:
//   - Record: one extracted listing (recycling center or store)
//   - Collector: the ordered accumulator of Records for a run
//   - Run: the state of one pipeline execution against one Site
//   - Site: the enum of supported listing sources
//
// Models live in their own package so that extract, pipeline, report and
// database can all use them without import cycles.
//
// The Record invariant is enforced here: a Record with neither a name nor
// an address is never retained by a Collector.
package model
