package config

import (
	"maps"
	"time"

	"github.com/nao1215/listingscan/internal/model"
)

// Flag names that a config file value must not override when set
// explicitly on the command line.
const (
	FlagURL         = "url"
	FlagZip         = "zip"
	FlagRetries     = "retries"
	FlagPageDelay   = "page-delay"
	FlagDetailDelay = "detail-delay"
	FlagMaxPages    = "max-pages"
)

// SiteConfig holds the settings of one site in the config file.
// Zero values mean "not set".
type SiteConfig struct {
	// URL is the Earth911 start URL.
	URL string `yaml:"url,omitempty"`

	// Zip is the BestBuy zip code.
	Zip string `yaml:"zip,omitempty"`

	// BaseURL overrides the URL relative links are resolved against.
	BaseURL string `yaml:"baseURL,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is an HTTP cookie to send with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Retries is the number of fetch attempts per URL.
	Retries int `yaml:"retries,omitempty"`

	// DetailDelay is the pause between detail pages, e.g. "2s".
	DetailDelay time.Duration `yaml:"detailDelay,omitempty"`

	// PageDelay is the pause between listing pages, e.g. "1s".
	PageDelay time.Duration `yaml:"pageDelay,omitempty"`

	// MaxPages bounds pagination.
	MaxPages int `yaml:"maxPages,omitempty"`
}

// File represents the structure of the .listingscan configuration file.
type File struct {
	// Sites maps a site name ("earth911", "bestbuy") to its configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for site merged over the
// defaults. Header maps are merged key by key.
func (cf *File) GetSiteConfig(site model.Site) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	sc, ok := cf.Sites[site.String()]
	if !ok {
		return result
	}

	if sc.URL != "" {
		result.URL = sc.URL
	}
	if sc.Zip != "" {
		result.Zip = sc.Zip
	}
	if sc.BaseURL != "" {
		result.BaseURL = sc.BaseURL
	}
	if sc.UserAgent != "" {
		result.UserAgent = sc.UserAgent
	}
	if sc.Cookie != "" {
		result.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, sc.Headers)
	}
	if sc.Retries != 0 {
		result.Retries = sc.Retries
	}
	if sc.DetailDelay != 0 {
		result.DetailDelay = sc.DetailDelay
	}
	if sc.PageDelay != 0 {
		result.PageDelay = sc.PageDelay
	}
	if sc.MaxPages != 0 {
		result.MaxPages = sc.MaxPages
	}

	return result
}

// ForSite returns a copy of c with the config file settings of site
// applied. Values whose flag explicit reports as set on the command line
// are kept. A nil explicit treats every flag as unset.
func (c *Config) ForSite(site model.Site, explicit func(flag string) bool) *Config {
	out := *c
	out.Headers = maps.Clone(c.Headers)
	if c.SiteConfigs == nil {
		return &out
	}
	if explicit == nil {
		explicit = func(string) bool { return false }
	}

	sc := c.SiteConfigs.GetSiteConfig(site)
	if sc.URL != "" && !explicit(FlagURL) {
		out.StartURL = sc.URL
	}
	if sc.Zip != "" && !explicit(FlagZip) {
		out.Zip = sc.Zip
	}
	if sc.Retries != 0 && !explicit(FlagRetries) {
		out.Retries = sc.Retries
	}
	if sc.PageDelay != 0 && !explicit(FlagPageDelay) {
		out.PageDelay = sc.PageDelay
	}
	if sc.DetailDelay != 0 && !explicit(FlagDetailDelay) {
		out.DetailDelay = sc.DetailDelay
	}
	if sc.MaxPages != 0 && !explicit(FlagMaxPages) {
		out.MaxPages = sc.MaxPages
	}
	if sc.BaseURL != "" {
		out.BaseURL = sc.BaseURL
	}
	if sc.UserAgent != "" {
		out.UserAgent = sc.UserAgent
	}
	if sc.Cookie != "" {
		out.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if out.Headers == nil {
			out.Headers = make(map[string]string)
		}
		maps.Copy(out.Headers, sc.Headers)
	}
	return &out
}
