package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/listingscan/internal/extract"
	"github.com/nao1215/listingscan/internal/fetch"
)

// DefaultPageDelay is the pause between listing page fetches.
const DefaultPageDelay = 1 * time.Second

// PageFetcher retrieves one page. *fetch.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*fetch.Page, error)
}

// StopReason tells why a walk ended.
type StopReason int

const (
	// StopNoNextPage means the pager had no next link.
	StopNoNextPage StopReason = iota
	// StopEmptyPage means a page yielded no listing links.
	StopEmptyPage
	// StopFetchFailed means a listing page could not be fetched.
	StopFetchFailed
	// StopMaxPages means the configured page bound was reached.
	StopMaxPages
)

// String returns a human-readable reason.
func (r StopReason) String() string {
	switch r {
	case StopNoNextPage:
		return "no next page"
	case StopEmptyPage:
		return "empty page"
	case StopFetchFailed:
		return "fetch failed"
	case StopMaxPages:
		return "max pages reached"
	default:
		return "unknown"
	}
}

// Walker discovers detail-page URLs by following a paginated listing.
//
// Every listing page is fetched and parsed exactly once; the same parse
// provides the links and the pager check. Discovery order is preserved and
// nothing is deduplicated.
type Walker struct {
	fetcher   PageFetcher
	base      *url.URL
	pageDelay time.Duration
	maxPages  int
	onSkip    func(pageURL string, err error)
	logger    *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithPageDelay sets the pause between listing page fetches.
func WithPageDelay(d time.Duration) WalkerOption {
	return func(w *Walker) {
		w.pageDelay = d
	}
}

// WithMaxPages bounds the number of listing pages. 0 means unlimited.
func WithMaxPages(n int) WalkerOption {
	return func(w *Walker) {
		w.maxPages = n
	}
}

// WithBaseURL sets the origin that relative listing links resolve against.
func WithBaseURL(base *url.URL) WalkerOption {
	return func(w *Walker) {
		if base != nil {
			w.base = base
		}
	}
}

// WithSkipFunc registers a callback for listing pages that could not be
// fetched.
func WithSkipFunc(fn func(pageURL string, err error)) WalkerOption {
	return func(w *Walker) {
		w.onSkip = fn
	}
}

// WithWalkerLogger sets the logger.
func WithWalkerLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker that fetches through f.
func NewWalker(f PageFetcher, opts ...WalkerOption) *Walker {
	base, _ := url.Parse(extract.Earth911BaseURL) //nolint:errcheck // constant URL
	w := &Walker{
		fetcher:   f,
		base:      base,
		pageDelay: DefaultPageDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PageURL returns the URL of listing page n. Page 1 is startURL verbatim;
// later pages append page=n, joined with '&' when startURL already has a
// query and '?' otherwise.
func PageURL(startURL string, n int) string {
	if n <= 1 {
		return startURL
	}
	sep := "?"
	if strings.Contains(startURL, "?") {
		sep = "&"
	}
	return startURL + sep + "page=" + strconv.Itoa(n)
}

// Walk follows the listing from startURL and returns the discovered detail
// URLs. It stops when a page cannot be fetched, yields no links, or has no
// next link; all three are normal ends and return a nil error. Only
// context cancellation is returned as an error, together with the URLs
// found so far.
func (w *Walker) Walk(ctx context.Context, startURL string) ([]string, error) {
	urls, _, err := w.walk(ctx, startURL)
	return urls, err
}

// WalkWithReason is Walk that also reports why the walk ended.
func (w *Walker) WalkWithReason(ctx context.Context, startURL string) ([]string, StopReason, error) {
	return w.walk(ctx, startURL)
}

func (w *Walker) walk(ctx context.Context, startURL string) ([]string, StopReason, error) {
	if _, err := url.Parse(startURL); err != nil {
		return nil, StopFetchFailed, fmt.Errorf("invalid start URL: %w", err)
	}

	links := make([]string, 0)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return links, StopFetchFailed, err
		}

		pageURL := PageURL(startURL, page)
		w.logger.Debug("fetching listing page", "page", page, "url", pageURL)

		doc, err := w.fetchDocument(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return links, StopFetchFailed, ctxErr
			}
			w.logger.Warn("listing page unavailable, stopping pagination", "page", page, "url", pageURL, "error", err)
			if w.onSkip != nil {
				w.onSkip(pageURL, err)
			}
			return links, StopFetchFailed, nil
		}

		found := extract.ListingLinks(doc, w.base)
		if len(found) == 0 {
			w.logger.Debug("no links on listing page, stopping pagination", "page", page)
			return links, StopEmptyPage, nil
		}
		links = append(links, found...)
		w.logger.Debug("listing page parsed", "page", page, "links", len(found), "total", len(links))

		if !extract.HasNextPage(doc) {
			return links, StopNoNextPage, nil
		}
		if w.maxPages > 0 && page >= w.maxPages {
			w.logger.Info("listing page bound reached", "maxPages", w.maxPages)
			return links, StopMaxPages, nil
		}

		if w.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return links, StopFetchFailed, ctx.Err()
			case <-time.After(w.pageDelay):
			}
		}
	}
}

// fetchDocument fetches and parses one listing page.
func (w *Walker) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	page, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}
