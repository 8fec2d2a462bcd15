package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Defaults for a Session.
const (
	// DefaultUserAgent matches the HTTP fetcher's desktop Chrome string.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	defaultWidth  = 1920
	defaultHeight = 1080

	// screenshotQuality 100 makes chromedp capture PNG.
	screenshotQuality = 100
)

// Session is a Driver backed by a local Chrome driven through chromedp.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc

	closeOnce sync.Once
}

var _ Driver = (*Session)(nil)

type sessionConfig struct {
	headless  bool
	userAgent string
	proxy     string
	execPath  string
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithHeadless toggles headless mode. Sessions are headless by default.
func WithHeadless(headless bool) SessionOption {
	return func(c *sessionConfig) {
		c.headless = headless
	}
}

// WithBrowserUserAgent overrides the browser User-Agent.
func WithBrowserUserAgent(ua string) SessionOption {
	return func(c *sessionConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBrowserProxy routes the browser through a SOCKS5 proxy (host:port).
func WithBrowserProxy(addr string) SessionOption {
	return func(c *sessionConfig) {
		c.proxy = addr
	}
}

// WithExecPath sets the Chrome binary. By default chromedp searches the
// usual install locations.
func WithExecPath(path string) SessionOption {
	return func(c *sessionConfig) {
		c.execPath = path
	}
}

// NewSession launches Chrome. The browser lives until Close is called or
// ctx is cancelled.
func NewSession(ctx context.Context, opts ...SessionOption) (*Session, error) {
	cfg := &sessionConfig{
		headless:  true,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
		chromedp.WindowSize(defaultWidth, defaultHeight),
		chromedp.UserAgent(cfg.userAgent),
	)
	if cfg.proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer("socks5://"+cfg.proxy))
	}
	if cfg.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser so launch errors surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
	}, nil
}

// run executes actions on the browser, bounded by the caller's ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate implements Driver.
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	return s.run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Locate implements Driver.
func (s *Session) Locate(ctx context.Context, candidates []string, timeout time.Duration) (string, error) {
	for _, selector := range candidates {
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := s.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
		cancel()
		if err == nil {
			return selector, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
	}
	return "", ErrNotFound
}

// Clear implements Driver.
func (s *Session) Clear(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Clear(selector, chromedp.ByQuery))
}

// Type implements Driver.
func (s *Session) Type(ctx context.Context, selector, value string) error {
	return s.run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery))
}

// Submit implements Driver.
func (s *Session) Submit(ctx context.Context, input, button string) (bool, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(button, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return false, err
	}
	if len(nodes) > 0 {
		if err := s.run(ctx, chromedp.Click(button, chromedp.ByQuery)); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, s.run(ctx, chromedp.SendKeys(input, kb.Enter, chromedp.ByQuery))
}

// WaitFor implements Driver.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrWaitTimeout
	}
	return err
}

// HTML implements Driver.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Screenshot implements Driver.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, screenshotQuality)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.cancelAlloc()
	})
	return nil
}
