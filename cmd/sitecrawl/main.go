// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl visits every page reachable from a seed URL under the same host
// and reports how many internal links point to each page.
//
// Usage:
//
//	sitecrawl <url>
//	sitecrawl --json --output report.json <url>
//
// See --help for all available options.
package main

// main is the entry point for sitecrawl.
func main() {
	Execute()
}
