package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/normalize"
)

// Free-text idioms of the store locator. These are the last resort after
// every structural locator missed, and they are heuristic: a match is a
// guess, a miss leaves the field empty.
var (
	// "Chelsea (W 23rd St)"
	storeNamePattern = regexp.MustCompile(`([A-Za-z\s]+\([^)]+\))`)

	// "60 W 23rd St"
	streetPattern = regexp.MustCompile(`(\d+\s+[NSEW]?\s*\d*\w*\s+St[^,]*)`)

	// "Open until 9 pm"
	hoursPattern = regexp.MustCompile(`(Open until \d+ [ap]m)`)

	// "2.3 miles away"
	distancePattern = regexp.MustCompile(`(\d+\.\d+ miles away)`)
)

// storeIdioms mark a text node as part of a store listing when the page
// has none of the expected containers.
var storeIdioms = []*regexp.Regexp{
	storeNamePattern,
	distancePattern,
	hoursPattern,
	regexp.MustCompile(`\d+ [NSEW] \d+\w+ St`),
}

// Pattern returns a Locator that runs re over the cleaned visible text of
// the fragment and yields the first capture group, trimmed.
func Pattern(re *regexp.Regexp) Locator {
	return func(s *goquery.Selection) string {
		return matchText(re, visibleText(s.Nodes...))
	}
}

// visibleText joins the rendered text nodes under nodes with single
// spaces, skipping script, style, noscript and template content.
func visibleText(nodes ...*html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return normalize.CleanText(strings.Join(parts, " "))
}

func matchText(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// fallbackStore builds a store record from free text alone.
func fallbackStore(text string) model.Record {
	return model.Record{
		Name:     matchText(storeNamePattern, text),
		Address:  matchText(streetPattern, text),
		Hours:    matchText(hoursPattern, text),
		Distance: matchText(distancePattern, text),
	}
}
