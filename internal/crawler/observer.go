package crawler

import "time"

// Observer receives traversal events from a Spider. It is the hook used for
// metrics; logging goes through the Spider's *slog.Logger instead.
//
// Implementations are called synchronously from the crawl loop and should
// return quickly.
type Observer interface {
	// PageFetched is called after a page body was fetched successfully.
	PageFetched(rawURL string, elapsed time.Duration)

	// FetchFailed is called when the Fetcher returned an error for rawURL.
	FetchFailed(rawURL string, err error)

	// LinksExtracted is called with the number of same-origin links found
	// on a fetched page.
	LinksExtracted(rawURL string, count int)

	// Revisited is called when a reference to an already known page was
	// counted without fetching it again.
	Revisited(rawURL string)

	// Skipped is called when rawURL was dropped without being recorded.
	Skipped(rawURL string, reason SkipReason)
}

// SkipReason explains why a URL was not recorded in the ledger.
type SkipReason string

const (
	// SkipInvalidURL means the URL could not be normalized.
	SkipInvalidURL SkipReason = "invalid_url"

	// SkipOutOfScope means the URL lies outside the seed's subtree.
	SkipOutOfScope SkipReason = "out_of_scope"

	// SkipIgnored means the URL path matched an ignore pattern.
	SkipIgnored SkipReason = "ignored"

	// SkipPageLimit means the page limit was reached.
	SkipPageLimit SkipReason = "page_limit"
)

// nopObserver discards every event.
type nopObserver struct{}

func (nopObserver) PageFetched(string, time.Duration) {}
func (nopObserver) FetchFailed(string, error)         {}
func (nopObserver) LinksExtracted(string, int)        {}
func (nopObserver) Revisited(string)                  {}
func (nopObserver) Skipped(string, SkipReason)        {}
