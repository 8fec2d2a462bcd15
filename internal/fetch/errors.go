package fetch

import (
	"errors"
	"fmt"
)

// ErrFetchExhausted is wrapped by Fetch when every attempt failed.
// It is recoverable: the caller skips the URL and the run continues.
var ErrFetchExhausted = errors.New("fetch exhausted")

// ErrBodyTooLarge is returned when a response body exceeds the size limit.
// The page is never returned partially.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
