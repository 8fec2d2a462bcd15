package model

// Record is one extracted business listing: a recycling center or a store.
//
// Fields that a site does not provide stay at their zero value. Records
// are created by the extract and pipeline packages and are not mutated
// after they have been handed to a Collector.
type Record struct {
	// Identifier is the 1-based position of the record in its run.
	// The Collector assigns it when the record is retained.
	Identifier int `json:"identifier"`

	// Name is the business or store name. May be empty.
	Name string `json:"name"`

	// Address is the composed one-line address. May be empty.
	Address string `json:"address"`

	// Hours is the opening-hours text, e.g. "Open until 9 pm".
	Hours string `json:"hours,omitempty"`

	// Distance is free-form distance text, e.g. "2.3 miles away".
	Distance string `json:"distance,omitempty"`

	// Phone is the phone number as published.
	Phone string `json:"phone,omitempty"`

	// DetailLink is an absolute URL to the listing's own page.
	DetailLink string `json:"detail_link,omitempty"`

	// LastUpdateDate is "YYYY-M-D" when it could be parsed, otherwise
	// the cleaned source text.
	LastUpdateDate string `json:"last_update_date,omitempty"`

	// Materials lists accepted materials in document order.
	Materials []string `json:"materials,omitempty"`

	// SourceURL is the page the record was extracted from.
	SourceURL string `json:"source_url,omitempty"`
}

// Identified reports whether the record carries a name or an address.
// Records without either are treated as noise and dropped.
func (r Record) Identified() bool {
	return r.Name != "" || r.Address != ""
}
