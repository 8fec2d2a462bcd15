package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultZip is the postal code searched when none is given.
const DefaultZip = "10001"

// Default waits of the store search.
const (
	DefaultLocateTimeout = 5 * time.Second
	DefaultResultTimeout = 5 * time.Second
)

// SearchForm describes one form-driven search.
type SearchForm struct {
	// URL is the page holding the form.
	URL string

	// Value is typed into the input.
	Value string

	// InputSelectors are tried in order to find the input.
	InputSelectors []string

	// SubmitSelector matches the submit control. Enter is pressed in the
	// input when nothing matches.
	SubmitSelector string

	// ResultSelector is awaited after submitting.
	ResultSelector string

	// LocateTimeout bounds the wait for each input candidate.
	LocateTimeout time.Duration

	// ResultTimeout bounds the wait for results.
	ResultTimeout time.Duration
}

// StoreSearchForm returns the store locator search for zip.
func StoreSearchForm(pageURL, zip string) SearchForm {
	if zip == "" {
		zip = DefaultZip
	}
	return SearchForm{
		URL:   pageURL,
		Value: zip,
		InputSelectors: []string{
			"input[placeholder*='ZIP']",
			"input[placeholder*='City']",
			"input[aria-label*='Enter city']",
			".zip-code-input",
			"input[data-cy='ZipCodeInputComponent']",
			"input[type='text'][placeholder]",
		},
		SubmitSelector: "button[type='submit'], .search-button",
		ResultSelector: "li[data-cy='LocationCardListItemComponent']",
		LocateTimeout:  DefaultLocateTimeout,
		ResultTimeout:  DefaultResultTimeout,
	}
}

// SearchOption configures Search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	logger *slog.Logger
}

// WithSearchLogger sets the logger for step progress.
func WithSearchLogger(logger *slog.Logger) SearchOption {
	return func(c *searchConfig) {
		c.logger = logger
	}
}

// Search drives form through d as a fixed sequence of steps: navigate,
// locate the input, clear it, type the value, submit, wait for results.
// A failing step returns a *StepError naming it; when no input candidate
// matches, the error also wraps ErrInteractionFailure. Results that do
// not show up within ResultTimeout are not an error, since the page may
// render them in a shape the selector does not know.
//
// Search does not close d.
func Search(ctx context.Context, d Driver, form SearchForm, opts ...SearchOption) error {
	cfg := &searchConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger

	logger.Info("opening search page", "url", form.URL)
	if err := d.Navigate(ctx, form.URL); err != nil {
		return &StepError{Step: StepNavigate, Err: err}
	}

	input, err := d.Locate(ctx, form.InputSelectors, form.LocateTimeout)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("%w: tried %d selectors", ErrInteractionFailure, len(form.InputSelectors))
		}
		return &StepError{Step: StepLocate, Err: err}
	}
	logger.Debug("found search input", "selector", input)

	if err := d.Clear(ctx, input); err != nil {
		return &StepError{Step: StepClear, Err: err}
	}

	logger.Info("entering search value", "value", form.Value)
	if err := d.Type(ctx, input, form.Value); err != nil {
		return &StepError{Step: StepType, Err: err}
	}

	clicked, err := d.Submit(ctx, input, form.SubmitSelector)
	if err != nil {
		return &StepError{Step: StepSubmit, Err: err}
	}
	if clicked {
		logger.Debug("clicked submit button")
	} else {
		logger.Debug("submit button not found, pressed Enter")
	}

	if err := d.WaitFor(ctx, form.ResultSelector, form.ResultTimeout); err != nil {
		if !errors.Is(err, ErrWaitTimeout) {
			return &StepError{Step: StepWait, Err: err}
		}
		logger.Warn("results did not appear in time, extracting what rendered", "timeout", form.ResultTimeout)
	}
	return nil
}
