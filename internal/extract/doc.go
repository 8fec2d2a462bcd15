// Package extract turns fetched or rendered HTML into records.
//
// Every field is resolved through a Cascade: an ordered list of Locator
// functions, most specific first, where the first non-empty result wins.
// Structural locators come first (CSS selectors compiled once with
// cascadia, XPath text-node lookups through htmlquery); the free-text
// regular expressions in fallback.go come last. A field whose whole
// cascade misses stays empty and does not affect the other fields.
//
// Store containers are located the same way, from the most stable marker
// down to a scan for tell-tale phrases.
package extract
