package pipeline

import "errors"

// ErrNoRenderedPage is returned by StoreExtractStep when the run holds no
// HTML captured by the browser step.
var ErrNoRenderedPage = errors.New("no rendered page to extract from")
