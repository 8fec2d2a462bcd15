package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Defaults for the Fetcher.
const (
	// DefaultMaxRetries is the total number of attempts per URL.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the base of the linear backoff.
	DefaultRetryDelay = 1 * time.Second

	// DefaultUserAgent imitates a desktop Chrome browser. Both target
	// sites serve reduced markup to unknown clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize is the largest accepted response body.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Page is the content of a successfully fetched URL.
type Page struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the Content-Type response header.
	ContentType string

	// Body is the response body decoded to UTF-8.
	Body string
}

// Fetcher retrieves page content with bounded retry and linear backoff.
//
// A Fetcher holds no per-URL state and performs no caching. It is safe for
// sequential reuse across a whole run.
type Fetcher struct {
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	userAgent   string
	maxBodySize int64
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxRetries sets the total number of attempts per URL.
// Values below 1 are treated as 1.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n < 1 {
			n = 1
		}
		f.maxRetries = n
	}
}

// WithRetryDelay sets the base delay. The wait after failed attempt n is
// delay*n.
func WithRetryDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.retryDelay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the largest accepted response body. A larger body
// fails the fetch with ErrBodyTooLarge and is not retried.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithRateLimit caps the request rate across all attempts, retries
// included. A zero limit leaves the Fetcher unlimited.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(f *Fetcher) {
		if limit <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger used for retry notices.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher that issues requests with client.
func New(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// MaxRetries returns the configured number of attempts.
func (f *Fetcher) MaxRetries() int {
	return f.maxRetries
}

// Fetch retrieves pageURL. Timeouts, connection errors and non-2xx
// statuses are retried up to MaxRetries attempts in total, waiting
// delay*n after failed attempt n. When every attempt fails the returned
// error wraps ErrFetchExhausted and the last cause; callers are expected
// to skip the URL and carry on. Context cancellation is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	var (
		page    *Page
		attempt int
	)

	operation := func() error {
		attempt++
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		p, err := f.fetchOnce(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		page = p
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(NewLinearBackOff(f.retryDelay), uint64(f.maxRetries-1)), //nolint:gosec // maxRetries >= 1
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		f.logger.Warn("fetch attempt failed",
			"url", pageURL,
			"attempt", attempt,
			"maxRetries", f.maxRetries,
			"retryIn", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrFetchExhausted, pageURL, attempt, err)
	}

	return page, nil
}

// fetchOnce performs a single GET.
func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		// A malformed URL will not get better on retry.
		return nil, backoff.Permanent(fmt.Errorf("invalid request for %s: %w", pageURL, err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(raw)) > f.maxBodySize {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, pageURL, f.maxBodySize))
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decode(raw, contentType)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode body of %s: %w", pageURL, err))
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:         pageURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// decode converts raw to UTF-8 using the declared or sniffed charset.
// An empty body is a valid, empty page.
func decode(raw []byte, contentType string) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// IsExhausted reports whether err means a URL was given up on.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrFetchExhausted)
}
