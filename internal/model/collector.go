package model

// SkippedURL is a URL that could not be fetched after all retries.
type SkippedURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// CollectorStats summarizes what happened to the records offered to a
// Collector.
type CollectorStats struct {
	// Attempted counts every record passed to Add.
	Attempted int `json:"attempted"`

	// Succeeded counts retained records.
	Succeeded int `json:"succeeded"`

	// Discarded counts records dropped because they had neither a name
	// nor an address.
	Discarded int `json:"discarded"`

	// Skipped counts URLs that were never extracted because fetching failed.
	Skipped int `json:"skipped"`
}

// Collector accumulates extracted records for one run in discovery order.
//
// It performs no sorting, deduplication or validation beyond the
// Identified check. A Collector is owned by a single run loop and is not
// safe for concurrent use.
type Collector struct {
	records   []Record
	skipped   []SkippedURL
	attempted int
	discarded int
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		records: make([]Record, 0),
		skipped: make([]SkippedURL, 0),
	}
}

// Add offers a record to the collector. Identified records are appended
// and receive the next identifier; the rest are counted as discarded.
// It reports whether the record was retained.
func (c *Collector) Add(rec Record) bool {
	c.attempted++
	if !rec.Identified() {
		c.discarded++
		return false
	}
	rec.Identifier = len(c.records) + 1
	c.records = append(c.records, rec)
	return true
}

// Skip records a URL whose content was unavailable.
func (c *Collector) Skip(url string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	c.skipped = append(c.skipped, SkippedURL{URL: url, Reason: reason})
}

// Records returns the retained records in insertion order.
func (c *Collector) Records() []Record {
	return c.records
}

// SkippedURLs returns the URLs that were skipped.
func (c *Collector) SkippedURLs() []SkippedURL {
	return c.skipped
}

// Stats returns the current counters.
func (c *Collector) Stats() CollectorStats {
	return CollectorStats{
		Attempted: c.attempted,
		Succeeded: len(c.records),
		Discarded: c.discarded,
		Skipped:   len(c.skipped),
	}
}
