package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/nao1215/listingscan/internal/normalize"
)

// Miss is the level reported by Cascade.Resolve when no locator matched.
const Miss = -1

// Locator resolves one field from a DOM fragment. An empty result is a
// miss, not an error; the next locator in the cascade gets its turn.
type Locator func(s *goquery.Selection) string

// Cascade is an ordered list of locators, most specific first.
type Cascade []Locator

// Resolve evaluates the locators in order and returns the first non-empty
// value together with the index of the locator that produced it. When
// every locator misses it returns "" and Miss.
func (c Cascade) Resolve(s *goquery.Selection) (string, int) {
	for level, locate := range c {
		if v := locate(s); v != "" {
			return v, level
		}
	}
	return "", Miss
}

// Value is Resolve without the level.
func (c Cascade) Value(s *goquery.Selection) string {
	v, _ := c.Resolve(s)
	return v
}

// Text returns a Locator yielding the cleaned text of the first element
// under the fragment that matches selector. The selector is compiled once;
// an invalid selector panics at construction.
func Text(selector string) Locator {
	m := cascadia.MustCompile(selector)
	return func(s *goquery.Selection) string {
		return normalize.CleanText(s.FindMatcher(m).First().Text())
	}
}

// Attr returns a Locator yielding the trimmed attribute of the first
// element matching selector.
func Attr(selector, attr string) Locator {
	m := cascadia.MustCompile(selector)
	return func(s *goquery.Selection) string {
		v, _ := s.FindMatcher(m).First().Attr(attr)
		return strings.TrimSpace(v)
	}
}

// Link is Attr(selector, "href") resolved against base. A nil base
// leaves the href untouched.
func Link(selector string, base *url.URL) Locator {
	href := Attr(selector, "href")
	return func(s *goquery.Selection) string {
		return resolve(base, href(s))
	}
}

// Parts returns a Locator for the first element matching selector that
// joins the cleaned text of its child spans with sep. An element without
// non-empty spans yields its own text.
func Parts(selector, sep string) Locator {
	m := cascadia.MustCompile(selector)
	return func(s *goquery.Selection) string {
		el := s.FindMatcher(m).First()
		if el.Length() == 0 {
			return ""
		}
		var parts []string
		el.FindMatcher(spanMatcher).Each(func(_ int, span *goquery.Selection) {
			if t := normalize.CleanText(span.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, sep)
		}
		return normalize.CleanText(el.Text())
	}
}

var spanMatcher = cascadia.MustCompile("span")

// resolve makes href absolute against base. Unparseable hrefs are
// returned as given.
func resolve(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
