package model

import (
	"time"

	"github.com/google/uuid"
)

// PageCount is a single ledger entry: a normalized URL and the number of
// internal links that point to it.
type PageCount struct {
	// URL is the normalized URL (host[:port] + path).
	URL string `json:"url"`

	// Count is the number of internal references discovered for URL.
	Count int `json:"count"`
}

// CrawlReport is the result of one crawl run.
//
// Design decision: The report holds a sorted copy of the ledger rather than
// the ledger itself because:
//  1. Writers must not observe later mutations
//  2. The sort order is part of the report contract
//  3. It serializes directly to JSON and to the database export
type CrawlReport struct {
	// ID uniquely identifies the run. It is used as the primary key when the
	// report is exported to SQLite.
	ID string `json:"id"`

	// BaseURL is the seed URL exactly as the user supplied it.
	BaseURL string `json:"base_url"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the ledger was frozen into this report.
	FinishedAt time.Time `json:"finished_at"`

	// Canceled is true when the crawl stopped early (signal or timeout) and
	// Pages only holds partial results.
	Canceled bool `json:"canceled,omitempty"`

	// Pages holds one entry per visited URL, sorted by descending count.
	Pages []PageCount `json:"pages"`
}

// NewCrawlReport creates a report for a crawl of baseURL starting now.
func NewCrawlReport(baseURL string) *CrawlReport {
	return &CrawlReport{
		ID:        uuid.NewString(),
		BaseURL:   baseURL,
		StartedAt: time.Now(),
		Pages:     make([]PageCount, 0),
	}
}

// Finish freezes the ledger into the report.
func (r *CrawlReport) Finish(ledger *Ledger) {
	r.Pages = ledger.Sorted()
	r.FinishedAt = time.Now()
}

// Duration returns how long the crawl took. It is zero until Finish is called.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// TotalLinks returns the sum of all counts in the report.
func (r *CrawlReport) TotalLinks() int {
	total := 0
	for _, p := range r.Pages {
		total += p.Count
	}
	return total
}
