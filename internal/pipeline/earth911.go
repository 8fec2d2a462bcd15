package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/listingscan/internal/crawler"
	"github.com/nao1215/listingscan/internal/extract"
	"github.com/nao1215/listingscan/internal/fetch"
	"github.com/nao1215/listingscan/internal/model"
)

// DefaultDetailDelay is the pause between two detail page fetches.
const DefaultDetailDelay = 2 * time.Second

// DiscoverStep follows the listing pagination starting at run.Target and
// stores the detail URLs in run.DiscoveredURLs. Listing pages that cannot
// be fetched are recorded as skipped and end the pagination.
type DiscoverStep struct {
	fetcher crawler.PageFetcher
	opts    []crawler.WalkerOption
	logger  *slog.Logger
}

// DiscoverStepOption configures a DiscoverStep.
type DiscoverStepOption func(*DiscoverStep)

// WithWalkerOptions passes options through to the crawler.Walker.
func WithWalkerOptions(opts ...crawler.WalkerOption) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.opts = append(s.opts, opts...)
	}
}

// WithDiscoverLogger sets a custom logger for the discover step.
func WithDiscoverLogger(logger *slog.Logger) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.logger = logger
	}
}

// NewDiscoverStep creates a pagination step using f for listing pages.
func NewDiscoverStep(f crawler.PageFetcher, opts ...DiscoverStepOption) *DiscoverStep {
	s := &DiscoverStep{
		fetcher: f,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do walks the listing.
func (s *DiscoverStep) Do(ctx context.Context, run *model.Run) error {
	opts := make([]crawler.WalkerOption, 0, len(s.opts)+2)
	opts = append(opts, crawler.WithWalkerLogger(s.logger))
	opts = append(opts, s.opts...)
	opts = append(opts, crawler.WithSkipFunc(run.Collector.Skip))

	urls, reason, err := crawler.NewWalker(s.fetcher, opts...).WalkWithReason(ctx, run.Target)
	run.DiscoveredURLs = append(run.DiscoveredURLs, urls...)
	if err != nil {
		return err
	}

	s.logger.Info("pagination finished",
		"urls", len(urls),
		"reason", reason.String(),
	)
	return nil
}

// DetailStep fetches every discovered URL in order and extracts one
// recycling-center record per page. A page that cannot be fetched is
// recorded as skipped and the step moves on.
type DetailStep struct {
	fetcher crawler.PageFetcher
	delay   time.Duration
	logger  *slog.Logger
}

// DetailStepOption configures a DetailStep.
type DetailStepOption func(*DetailStep)

// WithDetailDelay sets the pause between detail fetches.
// No pause follows the last URL.
func WithDetailDelay(d time.Duration) DetailStepOption {
	return func(s *DetailStep) {
		s.delay = d
	}
}

// WithDetailLogger sets a custom logger for the detail step.
func WithDetailLogger(logger *slog.Logger) DetailStepOption {
	return func(s *DetailStep) {
		s.logger = logger
	}
}

// NewDetailStep creates the detail extraction step.
func NewDetailStep(f crawler.PageFetcher, opts ...DetailStepOption) *DetailStep {
	s := &DetailStep{
		fetcher: f,
		delay:   DefaultDetailDelay,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DetailStep) Name() string {
	return "detail"
}

// Do extracts the discovered detail pages.
func (s *DetailStep) Do(ctx context.Context, run *model.Run) error {
	total := len(run.DiscoveredURLs)
	for i, pageURL := range run.DiscoveredURLs {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.Info("processing detail page", "index", i+1, "total", total, "url", pageURL)
		rec, err := s.extract(ctx, pageURL)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case fetch.IsExhausted(err):
			s.logger.Warn("detail page unavailable, skipping", "url", pageURL, "error", err)
			run.Collector.Skip(pageURL, err)
		case err != nil:
			s.logger.Warn("detail page unreadable, skipping", "url", pageURL, "error", err)
			run.Collector.Skip(pageURL, err)
		case !run.Collector.Add(rec):
			s.logger.Debug("discarded record without name or address", "url", pageURL)
		}

		if i < total-1 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}
	return nil
}

func (s *DetailStep) extract(ctx context.Context, pageURL string) (model.Record, error) {
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return model.Record{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return model.Record{}, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return extract.ExtractCenter(doc, pageURL), nil
}

// Earth911Config holds the settings of the Earth911 pipeline.
type Earth911Config struct {
	// BaseURL resolves relative listing links.
	BaseURL *url.URL

	// PageDelay is the pause between listing pages.
	PageDelay time.Duration

	// DetailDelay is the pause between detail pages.
	DetailDelay time.Duration

	// MaxPages bounds pagination. 0 means unlimited.
	MaxPages int
}

// DefaultEarth911Config returns the default Earth911 settings.
func DefaultEarth911Config() Earth911Config {
	base, _ := url.Parse(extract.Earth911BaseURL) //nolint:errcheck // constant URL
	return Earth911Config{
		BaseURL:     base,
		PageDelay:   crawler.DefaultPageDelay,
		DetailDelay: DefaultDetailDelay,
	}
}

// Earth911Pipeline builds the discover and detail steps around f.
func Earth911Pipeline(f crawler.PageFetcher, cfg Earth911Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := New(append([]Option{WithLogger(logger)}, opts...)...)

	walkerOpts := []crawler.WalkerOption{
		crawler.WithPageDelay(cfg.PageDelay),
		crawler.WithMaxPages(cfg.MaxPages),
	}
	if cfg.BaseURL != nil {
		walkerOpts = append(walkerOpts, crawler.WithBaseURL(cfg.BaseURL))
	}

	p.AddSteps(
		NewDiscoverStep(f, WithWalkerOptions(walkerOpts...), WithDiscoverLogger(logger)),
		NewDetailStep(f, WithDetailDelay(cfg.DetailDelay), WithDetailLogger(logger)),
	)
	return p
}
