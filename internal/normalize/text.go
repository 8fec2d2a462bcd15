package normalize

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ListSeparator joins multi-value fields in tabular output.
const ListSeparator = "; "

// nonPrintableASCII removes every rune outside the printable ASCII range
// 0x20-0x7E. Accented letters and symbols are dropped, not transliterated.
var nonPrintableASCII = runes.Remove(runes.Predicate(func(r rune) bool {
	return r < 0x20 || r > 0x7E
}))

// CleanText collapses whitespace runs to one space, trims both ends and
// then strips characters outside printable ASCII, in that order. A
// non-ASCII rune between two spaces therefore leaves a double space.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	collapsed := strings.Join(strings.Fields(text), " ")

	out, _, err := transform.String(nonPrintableASCII, collapsed)
	if err != nil {
		return collapsed
	}
	return out
}

// Address composes a one-line address from a street line and a
// city/state/zip line. Empty parts are left out so there is never a
// dangling separator.
func Address(street, cityLine string) string {
	parts := make([]string, 0, 2)
	if street != "" {
		parts = append(parts, street)
	}
	if cityLine != "" {
		parts = append(parts, cityLine)
	}
	return strings.Join(parts, ", ")
}

// JoinList flattens a multi-value field for tabular output.
func JoinList(items []string) string {
	return strings.Join(items, ListSeparator)
}
