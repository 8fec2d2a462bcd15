package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/listingscan/internal/browser"
	"github.com/nao1215/listingscan/internal/extract"
	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/report"
)

// DriverFactory starts a browser for one run.
type DriverFactory func(ctx context.Context) (browser.Driver, error)

// StoreSearchStep searches the store locator for run.Target in a browser
// and stores the rendered page in run.HTML. The browser is closed on every
// return path.
type StoreSearchStep struct {
	newDriver     DriverFactory
	pageURL       string
	resultTimeout time.Duration
	screenshotDir string
	logger        *slog.Logger
}

// StoreSearchStepOption configures a StoreSearchStep.
type StoreSearchStepOption func(*StoreSearchStep)

// WithStoreLocatorURL sets the store locator page.
func WithStoreLocatorURL(pageURL string) StoreSearchStepOption {
	return func(s *StoreSearchStep) {
		s.pageURL = pageURL
	}
}

// WithResultTimeout bounds the wait for store cards after submitting.
func WithResultTimeout(d time.Duration) StoreSearchStepOption {
	return func(s *StoreSearchStep) {
		if d > 0 {
			s.resultTimeout = d
		}
	}
}

// WithScreenshotDir saves a full-page screenshot into dir after the
// search. An empty dir disables the screenshot.
func WithScreenshotDir(dir string) StoreSearchStepOption {
	return func(s *StoreSearchStep) {
		s.screenshotDir = dir
	}
}

// WithStoreSearchLogger sets a custom logger for the search step.
func WithStoreSearchLogger(logger *slog.Logger) StoreSearchStepOption {
	return func(s *StoreSearchStep) {
		s.logger = logger
	}
}

// NewStoreSearchStep creates the browser search step.
func NewStoreSearchStep(newDriver DriverFactory, opts ...StoreSearchStepOption) *StoreSearchStep {
	s := &StoreSearchStep{
		newDriver:     newDriver,
		pageURL:       extract.BestBuyBaseURL,
		resultTimeout: browser.DefaultResultTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *StoreSearchStep) Name() string {
	return "store-search"
}

// Do runs the search.
func (s *StoreSearchStep) Do(ctx context.Context, run *model.Run) error {
	d, err := s.newDriver(ctx)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			s.logger.Warn("failed to close browser", "error", cerr)
		}
	}()

	form := browser.StoreSearchForm(s.pageURL, run.Target)
	form.ResultTimeout = s.resultTimeout
	if err := browser.Search(ctx, d, form, browser.WithSearchLogger(s.logger)); err != nil {
		return err
	}

	if s.screenshotDir != "" {
		s.saveScreenshot(ctx, d, run)
	}

	html, err := d.HTML(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture rendered page: %w", err)
	}
	run.HTML = html
	return nil
}

// saveScreenshot stores the capture. A failed screenshot does not fail
// the run.
func (s *StoreSearchStep) saveScreenshot(ctx context.Context, d browser.Driver, run *model.Run) {
	png, err := d.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("failed to take screenshot", "error", err)
		return
	}
	path, err := report.SaveScreenshot(s.screenshotDir, png)
	if err != nil {
		s.logger.Warn("failed to save screenshot", "error", err)
		return
	}
	run.ScreenshotPath = path
	s.logger.Info("screenshot saved", "path", path)
}

// StoreExtractStep extracts store records from run.HTML.
type StoreExtractStep struct {
	base   *url.URL
	logger *slog.Logger
}

// StoreExtractStepOption configures a StoreExtractStep.
type StoreExtractStepOption func(*StoreExtractStep)

// WithStoreBaseURL sets the URL store links are resolved against.
func WithStoreBaseURL(base *url.URL) StoreExtractStepOption {
	return func(s *StoreExtractStep) {
		if base != nil {
			s.base = base
		}
	}
}

// WithStoreExtractLogger sets a custom logger for the extract step.
func WithStoreExtractLogger(logger *slog.Logger) StoreExtractStepOption {
	return func(s *StoreExtractStep) {
		s.logger = logger
	}
}

// NewStoreExtractStep creates the store extraction step.
func NewStoreExtractStep(opts ...StoreExtractStepOption) *StoreExtractStep {
	base, _ := url.Parse(extract.BestBuyBaseURL) //nolint:errcheck // constant URL
	s := &StoreExtractStep{
		base:   base,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *StoreExtractStep) Name() string {
	return "store-extract"
}

// Do parses the rendered page and collects the stores.
func (s *StoreExtractStep) Do(_ context.Context, run *model.Run) error {
	if run.HTML == "" {
		return ErrNoRenderedPage
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(run.HTML))
	if err != nil {
		return fmt.Errorf("failed to parse rendered page: %w", err)
	}

	_, level := extract.StoreContainers(doc)
	drafts := extract.ExtractStores(doc, s.base)
	s.logger.Info("store cards found", "count", len(drafts), "level", level)

	for i, rec := range drafts {
		if !run.Collector.Add(rec) {
			s.logger.Debug("discarded store without name or address", "index", i+1)
		}
	}
	return nil
}

// BestBuyConfig holds the settings of the BestBuy pipeline.
type BestBuyConfig struct {
	// LocatorURL is the store locator page.
	LocatorURL string

	// ResultTimeout bounds the wait for store cards.
	ResultTimeout time.Duration

	// ScreenshotDir enables the screenshot when not empty.
	ScreenshotDir string
}

// DefaultBestBuyConfig returns the default BestBuy settings.
func DefaultBestBuyConfig() BestBuyConfig {
	return BestBuyConfig{
		LocatorURL:    extract.BestBuyBaseURL,
		ResultTimeout: browser.DefaultResultTimeout,
	}
}

// BestBuyPipeline builds the search and extract steps.
func BestBuyPipeline(newDriver DriverFactory, cfg BestBuyConfig, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := New(append([]Option{WithLogger(logger)}, opts...)...)

	searchOpts := []StoreSearchStepOption{
		WithResultTimeout(cfg.ResultTimeout),
		WithScreenshotDir(cfg.ScreenshotDir),
		WithStoreSearchLogger(logger),
	}
	extractOpts := []StoreExtractStepOption{WithStoreExtractLogger(logger)}
	if cfg.LocatorURL != "" {
		searchOpts = append(searchOpts, WithStoreLocatorURL(cfg.LocatorURL))
		if base, err := url.Parse(cfg.LocatorURL); err == nil {
			extractOpts = append(extractOpts, WithStoreBaseURL(base))
		}
	}

	p.AddSteps(
		NewStoreSearchStep(newDriver, searchOpts...),
		NewStoreExtractStep(extractOpts...),
	)
	return p
}
