// Package crawler implements the same-origin crawl traversal.
//
// # Architecture
//
// The package is built from three pieces, leaves first:
//
//   - NormalizeURL: turns a URL into the comparable ledger key
//     (host[:port] + path, no scheme, trailing slash, query or fragment)
//   - ExtractLinks: finds every a[href] in a document, resolves it against
//     the base URL and keeps the links sharing the base URL's origin
//   - Spider: the orchestrator that owns the work stack, applies the scope
//     and revisit rules and drives an injected Fetcher
//
// The Spider never fetches concurrently. The depth-first order of the
// original recursive design is reproduced with an explicit LIFO stack, so
// deep or cyclic sites cannot exhaust the goroutine stack.
//
// # Counting rules
//
// Every in-scope reference to a page increments its ledger entry. A page is
// fetched only the first time it is reached; later references only count.
// Fetch failures leave the entry at 1 and stop expansion of that node only.
//
// # Usage
//
//	spider := crawler.NewSpider(fetch.New(), crawler.WithLogger(logger))
//	ledger := spider.Crawl(ctx, seed, seed, model.NewLedger())
package crawler
