// Package database exports finished crawl reports to SQLite.
//
// This package implements the CrawlDB, which stores:
//   - One row per crawl run (base URL, run ID, timings)
//   - One row per page of that run with its inbound link count
//
// The export is write-only from the crawler's point of view: a crawl never
// reads earlier runs back, so each run starts from an empty ledger. The read
// methods exist for tooling and tests that inspect exported runs.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Plain tables can be queried with the sqlite3 shell or any SQL tool
package database
