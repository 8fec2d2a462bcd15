package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

var (
	keyPatternsMu sync.Mutex
	keyPatterns   = map[string]*regexp.Regexp{}
)

// keyPattern returns the cached `"key":"value"` pattern for key.
func keyPattern(key string) *regexp.Regexp {
	keyPatternsMu.Lock()
	defer keyPatternsMu.Unlock()
	if re, ok := keyPatterns[key]; ok {
		return re
	}
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"([^"]+)"`)
	keyPatterns[key] = re
	return re
}

// ScriptValue searches the inline script elements under s for a quoted key
// followed by a quoted value and returns the first value found. It is a
// plain pattern search, not a script parse, so nested or escaped values
// are out of reach.
func ScriptValue(s *goquery.Selection, key string) string {
	re := keyPattern(key)
	var value string
	s.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		if !strings.Contains(text, key) {
			return true
		}
		if m := re.FindStringSubmatch(text); m != nil {
			value = m[1]
			return false
		}
		return true
	})
	return value
}

// ScriptLocator adapts ScriptValue to a Locator.
func ScriptLocator(key string) Locator {
	return func(s *goquery.Selection) string {
		return ScriptValue(s, key)
	}
}
