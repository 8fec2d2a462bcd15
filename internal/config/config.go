package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/listingscan/internal/browser"
	"github.com/nao1215/listingscan/internal/crawler"
	"github.com/nao1215/listingscan/internal/fetch"
	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/pipeline"
	"github.com/nao1215/listingscan/internal/transport"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "listingscan"

	// DefaultStartURL is the Earth911 electronics search around 10001.
	DefaultStartURL = "https://search.earth911.com/?what=Electronics&where=10001&list_filter=all&max_distance=100" +
		"&family_id=&latitude=&longitude=&country=&province=&city=&sponsor="

	// DefaultZip is the zip code searched in the store locator.
	DefaultZip = browser.DefaultZip

	// DefaultOutputDir is where CSV and JSON files are written.
	DefaultOutputDir = "."

	// DefaultTimeout bounds one HTTP request.
	DefaultTimeout = transport.DefaultTimeout

	// DefaultRetries is the number of fetch attempts per URL.
	DefaultRetries = fetch.DefaultMaxRetries

	// DefaultRetryDelay is the base of the linear retry backoff.
	DefaultRetryDelay = fetch.DefaultRetryDelay

	// DefaultPageDelay is the pause between listing pages.
	DefaultPageDelay = crawler.DefaultPageDelay

	// MinPageDelay is the shortest accepted pause between listing pages.
	MinPageDelay = time.Second

	// DefaultDetailDelay is the pause between detail pages.
	DefaultDetailDelay = pipeline.DefaultDetailDelay

	// DefaultBatchSize runs the selected sites one after another.
	DefaultBatchSize = pipeline.DefaultConcurrency

	// DefaultUserAgent is a desktop browser User-Agent. Both sites serve
	// reduced pages to unknown clients.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize
)

// Config holds all configuration options for listingscan.
// It is populated from CLI flags and the config file and passed through
// the application rather than kept in global state.
type Config struct {
	// Sites lists the sources to scrape, in the order given.
	Sites []model.Site

	// StartURL is the first Earth911 listing page.
	StartURL string

	// Zip is the postal code typed into the BestBuy store locator.
	Zip string

	// OutputDir is the directory for CSV, JSON and screenshot files.
	OutputDir string

	// Timeout bounds a single HTTP request including reading the body.
	Timeout time.Duration

	// Retries is the number of attempts per URL, the first one included.
	Retries int

	// RetryDelay is the base delay; attempt n waits n*RetryDelay.
	RetryDelay time.Duration

	// PageDelay is the pause between listing page fetches.
	PageDelay time.Duration

	// DetailDelay is the pause between detail page fetches.
	DetailDelay time.Duration

	// MaxPages bounds pagination. 0 means unlimited.
	MaxPages int

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format used
	// by both the HTTP client and the browser.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests and by
	// the browser.
	UserAgent string

	// BaseURL overrides the URL relative links are resolved against.
	// Empty means the site's own origin.
	BaseURL string

	// Cookie is a raw cookie string sent with every HTTP request.
	Cookie string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// RequestRate caps HTTP requests per second, retries included.
	// 0 means unlimited.
	RequestRate float64

	// Screenshot saves a full-page capture of the store locator.
	Screenshot bool

	// Headless runs the browser without a window.
	Headless bool

	// BrowserPath is the Chrome executable. Empty searches the usual
	// install locations.
	BrowserPath string

	// MarkdownReport prints a Markdown summary of each run to stdout.
	MarkdownReport bool

	// BatchSize is the number of sites processed at once.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// LogFile is an optional rotated log file path.
	LogFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .listingscan is searched in the current directory and
	// then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory of the run history database.
	// Defaults to the XDG data directory (~/.local/share/listingscan on Linux).
	DBDir string

	// SaveToDB records every run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Sites:       model.AllSites(),
		StartURL:    DefaultStartURL,
		Zip:         DefaultZip,
		OutputDir:   DefaultOutputDir,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		RetryDelay:  DefaultRetryDelay,
		PageDelay:   DefaultPageDelay,
		DetailDelay: DefaultDetailDelay,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Headless:    true,
		BatchSize:   DefaultBatchSize,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for listingscan.
// On Linux: ~/.local/share/listingscan
// On macOS: ~/Library/Application Support/listingscan
// On Windows: %LOCALAPPDATA%\listingscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for listingscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HasSite reports whether site is selected.
func (c *Config) HasSite(site model.Site) bool {
	for _, s := range c.Sites {
		if s == site {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Retries < 1 {
		return ErrInvalidRetries
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.RetryDelay < 0 || c.PageDelay < 0 || c.DetailDelay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RequestRate < 0 {
		return ErrInvalidRate
	}

	if c.HasSite(model.SiteEarth911) && !isHTTPURL(c.StartURL) {
		return ErrInvalidStartURL
	}
	if c.HasSite(model.SiteEarth911) && c.PageDelay < MinPageDelay {
		return ErrPageDelayTooShort
	}
	if c.HasSite(model.SiteBestBuy) && strings.TrimSpace(c.Zip) == "" {
		return ErrInvalidZip
	}

	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
