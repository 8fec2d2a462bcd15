// Package main provides the entry point for the listingscan CLI.
//
// listingscan extracts business listings from two public sources: the
// Earth911 recycling-center search and the BestBuy store locator. Records
// are written as CSV and JSON files and kept in a local run history.
//
// Usage:
//
//	listingscan scan
//	listingscan scan earth911 --max-pages 3
//	listingscan scan bestbuy --zip 94103 --screenshot
//	listingscan history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
