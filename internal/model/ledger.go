package model

import (
	"sort"
	"sync"
)

// Ledger records how many times each normalized URL has been reached during
// a crawl. A key exists if and only if the URL has been visited or at least
// attempted. The first visit stores 1; every later reference increments.
//
// Design decision: The crawl loop is the only writer, but the ledger still
// carries a mutex so observers and report builders can read it while a crawl
// is in progress (for example after a cancellation signal).
type Ledger struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewLedger returns an empty ledger. It is created once per crawl, at the
// boundary where the crawl is started.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

// Record registers a visit to key and returns the resulting count.
// A returned count of 1 means this was the first visit.
func (l *Ledger) Record(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key]
}

// Has reports whether key has been visited or attempted.
func (l *Ledger) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.counts[key]
	return ok
}

// Count returns the count recorded for key, or 0 when key is unknown.
func (l *Ledger) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[key]
}

// Len returns the number of distinct URLs in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts)
}

// Snapshot returns a copy of the ledger contents.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Sorted returns the ledger as PageCount rows ordered by descending count.
// Ties are ordered by URL so the output is stable between runs.
func (l *Ledger) Sorted() []PageCount {
	snapshot := l.Snapshot()
	pages := make([]PageCount, 0, len(snapshot))
	for u, c := range snapshot {
		pages = append(pages, PageCount{URL: u, Count: c})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Count != pages[j].Count {
			return pages[i].Count > pages[j].Count
		}
		return pages[i].URL < pages[j].URL
	})
	return pages
}
