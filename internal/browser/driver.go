package browser

import (
	"context"
	"time"
)

// Driver is the interactive transport a search flow runs on. Selectors are
// CSS selectors. Session implements it with a headless Chrome; tests use
// an in-memory fake.
type Driver interface {
	// Navigate loads pageURL and waits for the document body.
	Navigate(ctx context.Context, pageURL string) error

	// Locate waits up to timeout for each candidate in turn and returns
	// the first one present in the page. It returns ErrNotFound when
	// every candidate timed out.
	Locate(ctx context.Context, candidates []string, timeout time.Duration) (string, error)

	// Clear empties the input matched by selector.
	Clear(ctx context.Context, selector string) error

	// Type sends value as keystrokes to the element matched by selector.
	Type(ctx context.Context, selector, value string) error

	// Submit clicks the first element matching button if the page has
	// one, and otherwise presses Enter in input. It reports whether a
	// button was clicked.
	Submit(ctx context.Context, input, button string) (bool, error)

	// WaitFor waits up to timeout for selector. It returns
	// ErrWaitTimeout when the selector never appeared.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the browser. It is safe to call more than once.
	Close() error
}
