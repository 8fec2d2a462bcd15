package extract

import (
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/nao1215/listingscan/internal/model"
	"github.com/nao1215/listingscan/internal/normalize"
)

// Earth911BaseURL is the origin listing hrefs are resolved against.
const Earth911BaseURL = "https://search.earth911.com"

// materialsLabel is the caption span inside the inline materials summary.
const materialsLabel = "Materials accepted:"

// listingItemClass recognizes both entry types in either zebra stripe.
var listingItemClass = regexp.MustCompile(`result-item\s+(program|location)\s+(odd|even)`)

var (
	listItemMatcher     = cascadia.MustCompile("li")
	titleMatcher        = cascadia.MustCompile("h2.title")
	anchorMatcher       = cascadia.MustCompile("a")
	pagerMatcher        = cascadia.MustCompile("div.pager")
	nextMatcher         = cascadia.MustCompile("a.next")
	headerMatcher       = cascadia.MustCompile("h1.back-to")
	lastVerifiedMatcher = cascadia.MustCompile("span.last-verified")
	mastheadMatcher     = cascadia.MustCompile("div.masthead")
	contactMatcher      = cascadia.MustCompile("div.contact")
	addrLineMatcher     = cascadia.MustCompile("p.addr")
	materialsMatcher    = cascadia.MustCompile("table.materials-accepted")
	rowMatcher          = cascadia.MustCompile("tr")
	materialCellMatcher = cascadia.MustCompile("td.material-name")
	summaryMatcher      = cascadia.MustCompile("p.result-materials")
	summarySpanMatcher  = cascadia.MustCompile("span.material.no-link")
)

// directText selects the text children of a node.
var directText = xpath.MustCompile("./text()")

// centerName resolves a recycling center's name.
var centerName = Cascade{
	headerText,
	func(s *goquery.Selection) string {
		return normalize.CleanText(s.FindMatcher(titleMatcher).First().FindMatcher(anchorMatcher).First().Text())
	},
}

// materialCell resolves one row of the materials table.
var materialCell = Cascade{
	Text("span"),
	func(s *goquery.Selection) string { return normalize.CleanText(s.Text()) },
}

// ListingLinks returns the absolute detail URLs of the listing items on a
// search results page, in document order. Items without a title link are
// skipped.
func ListingLinks(doc *goquery.Document, base *url.URL) []string {
	links := make([]string, 0)
	doc.FindMatcher(listItemMatcher).Each(func(_ int, item *goquery.Selection) {
		class, _ := item.Attr("class")
		if !listingItemClass.MatchString(class) {
			return
		}
		href, ok := item.FindMatcher(titleMatcher).First().FindMatcher(anchorMatcher).First().Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, resolve(base, href))
	})
	return links
}

// HasNextPage reports whether the page's pager offers a next link.
func HasNextPage(doc *goquery.Document) bool {
	return doc.FindMatcher(pagerMatcher).First().FindMatcher(nextMatcher).Length() > 0
}

// ExtractCenter builds a recycling-center record from a detail page.
// Fields that cannot be located stay empty; the caller decides whether
// the record is kept.
func ExtractCenter(doc *goquery.Document, pageURL string) model.Record {
	rec := model.Record{
		Name:      centerName.Value(doc.Selection),
		Address:   centerAddress(doc.Selection),
		Materials: Materials(doc.Selection),
		SourceURL: pageURL,
	}

	verified := doc.FindMatcher(headerMatcher).First().FindMatcher(lastVerifiedMatcher).First()
	if verified.Length() > 0 {
		rec.LastUpdateDate = normalize.Date(verified.Text())
	}
	return rec
}

// headerText yields the first non-blank text node directly under the
// h1.back-to heading. The heading also holds the last-verified span, so
// the element's full text cannot be used.
func headerText(s *goquery.Selection) string {
	h1 := s.FindMatcher(headerMatcher).First()
	if h1.Length() == 0 {
		return ""
	}
	for _, n := range htmlquery.QuerySelectorAll(h1.Get(0), directText) {
		if n.Type != html.TextNode {
			continue
		}
		if t := normalize.CleanText(n.Data); t != "" {
			return t
		}
	}
	return ""
}

// centerAddress composes the masthead address lines. With two or more
// lines the first is the street and the second the city line; a single
// line is taken as the city line.
func centerAddress(s *goquery.Selection) string {
	contact := s.FindMatcher(mastheadMatcher).First().FindMatcher(contactMatcher).First()

	var lines []string
	contact.FindMatcher(addrLineMatcher).Each(func(_ int, p *goquery.Selection) {
		if t := normalize.CleanText(p.Text()); t != "" {
			lines = append(lines, t)
		}
	})

	switch {
	case len(lines) >= 2:
		return normalize.Address(lines[0], lines[1])
	case len(lines) == 1:
		return normalize.Address("", lines[0])
	default:
		return ""
	}
}

// Materials returns the accepted materials in document order. The
// materials table is preferred; header rows (class "label") are skipped.
// When the table yields nothing the inline summary paragraph is read
// instead. Duplicates are kept.
func Materials(s *goquery.Selection) []string {
	materials := make([]string, 0)

	s.FindMatcher(materialsMatcher).First().FindMatcher(rowMatcher).Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("label") {
			return
		}
		cell := row.FindMatcher(materialCellMatcher).First()
		if cell.Length() == 0 {
			return
		}
		if m := materialCell.Value(cell); m != "" {
			materials = append(materials, m)
		}
	})
	if len(materials) > 0 {
		return materials
	}

	s.FindMatcher(summaryMatcher).First().FindMatcher(summarySpanMatcher).Each(func(_ int, span *goquery.Selection) {
		if m := normalize.CleanText(span.Text()); m != "" && m != materialsLabel {
			materials = append(materials, m)
		}
	})
	return materials
}
