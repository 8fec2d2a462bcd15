package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSite is returned by ParseSite for names it does not recognize.
var ErrUnknownSite = errors.New("unknown site")

// Site identifies one of the supported listing sources.
type Site int

const (
	// SiteUnknown is the zero value and never names a real source.
	SiteUnknown Site = iota

	// SiteEarth911 is the Earth911 recycling-center search. Listings are
	// paginated HTML pages with one detail page per center.
	SiteEarth911

	// SiteBestBuy is the BestBuy store locator. Results are rendered by
	// JavaScript after a zip-code search, so a browser is required.
	SiteBestBuy
)

// String returns the site name used on the command line and in storage.
func (s Site) String() string {
	switch s {
	case SiteEarth911:
		return "earth911"
	case SiteBestBuy:
		return "bestbuy"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Site) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Site) UnmarshalText(text []byte) error {
	parsed, err := ParseSite(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSite converts a case-insensitive site name into a Site.
func ParseSite(name string) (Site, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "earth911":
		return SiteEarth911, nil
	case "bestbuy":
		return SiteBestBuy, nil
	default:
		return SiteUnknown, fmt.Errorf("%w: %q (expected earth911 or bestbuy)", ErrUnknownSite, name)
	}
}

// AllSites returns every supported site in a stable order.
func AllSites() []Site {
	return []Site{SiteEarth911, SiteBestBuy}
}
