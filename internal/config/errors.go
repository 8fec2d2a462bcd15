package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no site is selected.
	ErrNoTarget = errors.New("no site specified: choose earth911, bestbuy or both")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when fewer than one attempt is configured.
	ErrInvalidRetries = errors.New("invalid retries: must be at least 1")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidDelay is returned when a retry, page or detail delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrPageDelayTooShort is returned when Earth911 listing pages would be
	// fetched less than MinPageDelay apart.
	ErrPageDelayTooShort = errors.New("invalid page delay: must be at least 1s")

	// ErrInvalidMaxPages is returned when the page bound is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative (0 means unlimited)")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRate is returned when the request rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative (0 means unlimited)")

	// ErrInvalidStartURL is returned when the Earth911 start URL is not an
	// absolute http(s) URL.
	ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrInvalidZip is returned when the BestBuy zip code is empty.
	ErrInvalidZip = errors.New("invalid zip code: must not be empty")
)
