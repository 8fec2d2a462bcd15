// Package normalize turns raw strings pulled out of HTML into canonical
// field values.
//
// All functions are pure and lossy by contract:
//   - Date recognizes a small ordered set of English date layouts and
//     falls back to the cleaned input when none matches.
//   - CleanText collapses whitespace and discards non-ASCII characters.
//   - Address joins a street line and a city/state/zip line.
//   - JoinList flattens a list with "; " for CSV output.
package normalize
