// Package fetch retrieves raw page content with bounded retry.
//
// Fetch makes up to MaxRetries attempts (3 by default). After failed
// attempt n it waits delay*n, so the default schedule is 1s then 2s, and it
// never waits after the final attempt. Retries are driven by
// github.com/cenkalti/backoff/v4 with the LinearBackOff policy defined here.
//
// A URL that fails every attempt yields an error wrapping ErrFetchExhausted.
// That is not fatal to a run; the caller records the URL as skipped and
// moves on. Bodies are decoded to UTF-8 according to the response charset.
package fetch
