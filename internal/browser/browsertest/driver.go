// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"sync"
	"time"

	"github.com/nao1215/listingscan/internal/browser"
)

// Driver is a scripted browser.Driver. Selectors listed in Present are
// found by Locate and WaitFor; everything else is missing. The zero value
// is usable.
type Driver struct {
	// Present lists the selectors that exist on the page.
	Present map[string]bool

	// Page is returned by HTML.
	Page string

	// PNG is returned by Screenshot.
	PNG []byte

	// Per-method failures.
	NavigateErr   error
	ClearErr      error
	TypeErr       error
	SubmitErr     error
	WaitErr       error
	HTMLErr       error
	ScreenshotErr error

	mu      sync.Mutex
	calls   []string
	typed   string
	visited string
	closed  int
}

var _ browser.Driver = (*Driver)(nil)

func (d *Driver) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

// Calls returns the method calls in order.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Typed returns the last value passed to Type.
func (d *Driver) Typed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.typed
}

// Visited returns the last URL passed to Navigate.
func (d *Driver) Visited() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visited
}

// Closed returns how many times Close was called.
func (d *Driver) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Navigate implements browser.Driver.
func (d *Driver) Navigate(_ context.Context, pageURL string) error {
	d.record("navigate")
	d.mu.Lock()
	d.visited = pageURL
	d.mu.Unlock()
	return d.NavigateErr
}

// Locate implements browser.Driver.
func (d *Driver) Locate(ctx context.Context, candidates []string, _ time.Duration) (string, error) {
	d.record("locate")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, c := range candidates {
		if d.Present[c] {
			return c, nil
		}
	}
	return "", browser.ErrNotFound
}

// Clear implements browser.Driver.
func (d *Driver) Clear(_ context.Context, _ string) error {
	d.record("clear")
	return d.ClearErr
}

// Type implements browser.Driver.
func (d *Driver) Type(_ context.Context, _, value string) error {
	d.record("type")
	d.mu.Lock()
	d.typed = value
	d.mu.Unlock()
	return d.TypeErr
}

// Submit implements browser.Driver.
func (d *Driver) Submit(_ context.Context, _, button string) (bool, error) {
	d.record("submit")
	if d.SubmitErr != nil {
		return false, d.SubmitErr
	}
	return d.Present[button], nil
}

// WaitFor implements browser.Driver.
func (d *Driver) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	d.record("wait")
	if d.WaitErr != nil {
		return d.WaitErr
	}
	if !d.Present[selector] {
		return browser.ErrWaitTimeout
	}
	return nil
}

// HTML implements browser.Driver.
func (d *Driver) HTML(_ context.Context) (string, error) {
	d.record("html")
	return d.Page, d.HTMLErr
}

// Screenshot implements browser.Driver.
func (d *Driver) Screenshot(_ context.Context) ([]byte, error) {
	d.record("screenshot")
	return d.PNG, d.ScreenshotErr
}

// Close implements browser.Driver.
func (d *Driver) Close() error {
	d.record("close")
	d.mu.Lock()
	d.closed++
	d.mu.Unlock()
	return nil
}
