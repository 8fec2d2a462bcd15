package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults for the HTTP session.
const (
	// DefaultTimeout bounds a single request including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRedirects stops redirect loops.
	DefaultMaxRedirects = 10

	// checkProxyTimeout bounds the TCP reachability probe in CheckProxy.
	checkProxyTimeout = 2 * time.Second
)

// options holds the settings collected from Option values.
type options struct {
	timeout      time.Duration
	proxyAddress string
	cookie       string
	headers      map[string]string
	maxRedirects int
}

// Option configures the HTTP client built by NewHTTPClient.
type Option func(*options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithProxy routes every connection through the SOCKS5 proxy at
// "host:port". An empty address means a direct connection.
func WithProxy(address string) Option {
	return func(o *options) {
		o.proxyAddress = address
	}
}

// WithCookie adds a raw cookie string ("a=1; b=2") to every request.
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

// WithHeaders adds fixed headers to every request, including redirects.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// NewHTTPClient builds the session shared by every request of a run: a
// cookie jar, bounded redirects, an optional SOCKS5 proxy and optional
// fixed headers and cookie.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	o := &options{
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(o)
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if o.proxyAddress != "" {
		if !IsValidProxyAddress(o.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", o.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		base.Proxy = nil
		base.DialContext = dialContext(dialer)
	}

	var rt http.RoundTripper = base
	if o.cookie != "" || len(o.headers) > 0 {
		rt = &headerInjectingTransport{
			base:    base,
			cookie:  o.cookie,
			headers: o.headers,
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	maxRedirects := o.maxRedirects
	return &http.Client{
		Transport: rt,
		Timeout:   o.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
// proxy.SOCKS5 returns a ContextDialer; older dialers fall back to a
// goroutine so cancellation is still honored.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case r := <-resultCh:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// IsValidProxyAddress reports whether address is "host:port" with a
// non-empty host and a port in 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}
	if strings.ContainsAny(port, "+-") {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// CheckProxy verifies that something accepts TCP connections at address.
// It does not speak SOCKS; a wrong kind of listener is only detected by
// the first real request.
func CheckProxy(ctx context.Context, address string) ProxyStatus {
	if !IsValidProxyAddress(address) {
		return ProxyStatusInvalidAddress
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	_ = conn.Close()
	return ProxyStatusOK
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
