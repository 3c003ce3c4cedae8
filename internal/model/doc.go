// Package model defines the data structures shared by the crawler, the
// report writers and the database export.
//
// This package contains the following main types:
//   - Ledger: The visit ledger mapping normalized URLs to inbound link counts
//   - CrawlReport: The finished crawl result derived from a Ledger
//   - PageCount: One row of a CrawlReport
//
// Design decision: We keep these types in their own package to avoid circular
// dependencies. The crawler writes the Ledger while report, database and
// pipeline read the CrawlReport, so centralizing them prevents import cycles.
package model
