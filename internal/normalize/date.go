package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// monthNumbers maps full and three-letter English month names to 1-12.
// "may" is listed once because its abbreviation is the full name.
var monthNumbers = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var (
	// updatedPrefix matches the verb the listing site puts in front of dates.
	updatedPrefix = regexp.MustCompile(`(?i)^updated\s*:?\s*`)

	monthDayYear = regexp.MustCompile(`(\w+)\s+(\d{1,2}),?\s+(\d{4})`)
	slashMDY     = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	dashYMD      = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dashMDY      = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)
)

// datePattern is one entry of the ordered date recognizer list.
// parse returns the canonical date and true on success; a false result
// lets the next pattern try.
type datePattern struct {
	name  string
	parse func(text string) (string, bool)
}

// datePatterns are tried in order; the first that succeeds wins.
var datePatterns = []datePattern{
	{
		name: "month-day-year",
		parse: func(text string) (string, bool) {
			m := monthDayYear.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			month, ok := monthNumbers[strings.ToLower(m[1])]
			if !ok {
				return "", false
			}
			return canonical(m[3], strconv.Itoa(month), m[2]), true
		},
	},
	{
		name: "m/d/y",
		parse: func(text string) (string, bool) {
			m := slashMDY.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return canonical(m[3], m[1], m[2]), true
		},
	},
	{
		// Already in year-first form: the text is returned as is.
		name: "y-m-d",
		parse: func(text string) (string, bool) {
			if !dashYMD.MatchString(text) {
				return "", false
			}
			return text, true
		},
	},
	{
		name: "m-d-y",
		parse: func(text string) (string, bool) {
			m := dashMDY.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			return canonical(m[3], m[1], m[2]), true
		},
	},
}

// Date converts free-form date text such as "Updated May 15, 2013" or
// "5/15/2013" into the canonical "YYYY-M-D" form ("2013-5-15").
//
// The text is cleaned first and a leading "Updated" is removed. If no
// pattern matches, the cleaned text is returned unchanged; an unparseable
// date is not an error.
func Date(text string) string {
	cleaned := CleanText(text)
	if cleaned == "" {
		return ""
	}
	cleaned = updatedPrefix.ReplaceAllString(cleaned, "")

	for _, p := range datePatterns {
		if out, ok := p.parse(cleaned); ok {
			return out
		}
	}
	return cleaned
}

// canonical joins the date parts without zero padding.
func canonical(year, month, day string) string {
	return year + "-" + unpad(month) + "-" + unpad(day)
}

// unpad strips leading zeros from a numeric date component.
func unpad(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}
