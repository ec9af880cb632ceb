// Package main provides the entry point for the sitesnap CLI.
//
// sitesnap crawls every page of one origin, saves the markup and a
// screenshot of each HTML page, and writes a manifest of every fetched URL
// with its HTTP status. Two snapshot directories can then be compared.
//
// Usage:
//
//	sitesnap crawl <startURL> [outputDir]
//	sitesnap compare <dirA> <dirB>
//
// See --help for all available options.
package main

// main is the entry point for sitesnap.
func main() {
	Execute()
}
