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
)

// BestBuyBaseURL is the store locator page and the base for detail links.
const BestBuyBaseURL = "https://www.bestbuy.com/site/store-locator"

// Container cascade levels reported by StoreContainers.
const (
	ContainerCard = iota
	ContainerClass
	ContainerText
)

var (
	cardMatcher = cascadia.MustCompile(`li[data-cy="LocationCardListItemComponent"]`)
	divMatcher  = cascadia.MustCompile("div")
	liMatcher   = cascadia.MustCompile("li")
)

// visible excludes text nodes that a browser does not render.
const visible = `not(ancestor::script) and not(ancestor::style) and not(ancestor::noscript) and not(ancestor::template)`

var (
	cardClass = regexp.MustCompile(`location-card|store-card`)

	// cardPhrases are present in every rendered store card.
	cardPhrases = xpath.MustCompile(`//text()[(contains(., 'miles away') or contains(., 'Store Details')) and ` + visible + `]`)

	allText = xpath.MustCompile(`//text()[` + visible + `]`)
)

var (
	storeName = Cascade{
		Text(`h2 button[data-cy="store-heading"]`),
		Text("h2.location-card-title button"),
		Text(".location-card-title button"),
		Text("h2 button"),
		Text(".store-name"),
		Text("h2"),
		Text("h3"),
		Pattern(storeNamePattern),
	}

	storeAddress = Cascade{
		Parts(`span[data-cy="AddressComponent"]`, ", "),
		Parts(".loc-address", ", "),
		Parts(".store-address", ", "),
		Parts(".address", ", "),
		Pattern(streetPattern),
	}

	storeHours = Cascade{
		Text(`span[data-cy="BusinessHoursComponent"]`),
		Text(".hours"),
		Text(".store-hours"),
		Text(".business-hours"),
		Pattern(hoursPattern),
	}

	storeDistance = Cascade{
		Text(`p[data-cy="LocationDistance"]`),
		Text(".location-distance p"),
		Text(".distance"),
		Pattern(distancePattern),
	}

	storePhone = Cascade{
		ScriptLocator("phone"),
	}
)

// storeLink is built per page because detail links resolve against it.
func storeLink(base *url.URL) Cascade {
	return Cascade{
		Link(`a[data-cy="DetailsComponent"]`, base),
		Link("a.details", base),
		Link(`a[href*="stores.bestbuy.com"]`, base),
	}
}

// StoreContainers locates the store cards on a rendered locator page. It
// tries the data-cy list items first, then divs whose class names a
// location or store card, and finally any element holding a card phrase,
// widened to its enclosing list item. The returned level is the cascade
// index that matched, or Miss with an empty selection.
func StoreContainers(doc *goquery.Document) (*goquery.Selection, int) {
	if cards := doc.FindMatcher(cardMatcher); cards.Length() > 0 {
		return cards, ContainerCard
	}

	divs := doc.FindMatcher(divMatcher).FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return cardClass.MatchString(class)
	})
	if divs.Length() > 0 {
		return divs, ContainerClass
	}

	var nodes []*html.Node
	seen := make(map[*html.Node]bool)
	for _, text := range htmlquery.QuerySelectorAll(doc.Get(0), cardPhrases) {
		owner := text.Parent
		if owner == nil || owner.Type != html.ElementNode {
			continue
		}
		container := enclosing(owner, true)
		if container == nil || seen[container] {
			continue
		}
		seen[container] = true
		nodes = append(nodes, container)
	}
	if len(nodes) > 0 {
		return doc.FindNodes(nodes...), ContainerText
	}

	return doc.FindMatcher(cardMatcher), Miss
}

// enclosing walks up from n to the nearest li. When there is none and
// orParent is set, n's parent element (or n itself at the root) is used.
func enclosing(n *html.Node, orParent bool) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && liMatcher.Match(p) {
			return p
		}
	}
	if !orParent {
		return nil
	}
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		return n.Parent
	}
	return n
}

// ExtractStore resolves every field of one store container. Each field
// runs its own cascade, so a miss on one field leaves the others intact.
func ExtractStore(container *goquery.Selection, base *url.URL) model.Record {
	return model.Record{
		Name:       storeName.Value(container),
		Address:    storeAddress.Value(container),
		Hours:      storeHours.Value(container),
		Distance:   storeDistance.Value(container),
		Phone:      storePhone.Value(container),
		DetailLink: storeLink(base).Value(container),
	}
}

// ExtractStores returns one record per store container, in document order,
// including records that carry neither name nor address; the Collector
// decides what is kept. When no container produces an identified record
// the whole page is rescanned with the free-text idioms.
func ExtractStores(doc *goquery.Document, base *url.URL) []model.Record {
	records := make([]model.Record, 0)
	containers, _ := StoreContainers(doc)
	containers.Each(func(_ int, c *goquery.Selection) {
		records = append(records, ExtractStore(c, base))
	})

	for _, rec := range records {
		if rec.Identified() {
			return records
		}
	}
	return ExtractStoresFromText(doc)
}

// ExtractStoresFromText is the last-resort page scan. Every text node that
// matches a store idiom marks its enclosing list item as a store; each
// distinct list item is then parsed with the free-text patterns only.
// Text outside any list item is ignored.
func ExtractStoresFromText(doc *goquery.Document) []model.Record {
	records := make([]model.Record, 0)
	seen := make(map[*html.Node]bool)

	for _, text := range htmlquery.QuerySelectorAll(doc.Get(0), allText) {
		if !matchesIdiom(text.Data) || text.Parent == nil {
			continue
		}
		li := enclosing(text.Parent, false)
		if li == nil || seen[li] {
			continue
		}
		seen[li] = true
		records = append(records, fallbackStore(visibleText(li)))
	}
	return records
}

func matchesIdiom(text string) bool {
	for _, re := range storeIdioms {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
