package crawler

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Fetcher retrieves the HTML text of a page. Any error is treated as a
// failure of that page only.
type Fetcher interface {
	FetchHTML(ctx context.Context, rawURL string) (string, error)
}

// ScopeMode selects how the Spider decides whether a URL belongs to the
// seed's subtree. Both modes compare normalized URLs.
type ScopeMode int

const (
	// ScopeSubtree admits the base itself and URLs below it on a path
	// segment boundary: base "example.com/docs" admits "example.com/docs/a"
	// but not "example.com/docsearch".
	ScopeSubtree ScopeMode = iota

	// ScopePrefix admits any URL whose normalized form starts with the
	// normalized base, so "example.com/docsearch" is in scope of
	// "example.com/docs". This reproduces the behaviour of earlier releases.
	ScopePrefix
)

// String returns the flag spelling of the mode.
func (m ScopeMode) String() string {
	if m == ScopePrefix {
		return "prefix"
	}
	return "subtree"
}

// Spider crawls every page reachable from a seed URL inside the seed's
// subtree and counts the internal links pointing at each page.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// fetcher retrieves page HTML. It is injected so tests and alternative
	// transports can replace the HTTP client.
	fetcher Fetcher

	// logger receives progress narration at debug level and node failures
	// at warn level.
	logger *slog.Logger

	// observer receives traversal events for metrics.
	observer Observer

	// scope selects the subtree test.
	scope ScopeMode

	// maxPages caps the number of distinct pages recorded in the ledger.
	// 0 means unlimited.
	maxPages int

	// ignorePatterns are URL path globs that are never recorded or fetched.
	ignorePatterns []string
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLogger sets the logger used for crawl narration.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the observer notified of traversal events.
func WithObserver(observer Observer) SpiderOption {
	return func(s *Spider) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithScopeMode sets how the subtree scope is checked.
func WithScopeMode(mode ScopeMode) SpiderOption {
	return func(s *Spider) {
		s.scope = mode
	}
}

// WithMaxPages caps the number of distinct pages recorded.
// Once the cap is reached, references to known pages are still counted but
// unknown pages are dropped. 0 disables the cap.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages >= 0 {
			s.maxPages = maxPages
		}
	}
}

// WithIgnorePatterns sets URL path patterns that are never crawled.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// NewSpider creates a Spider that fetches pages through fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
		scope:    ScopeSubtree,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl visits currentURL and everything reachable from it inside the
// subtree of baseURL, recording visits in ledger. The same ledger is
// returned. Normally currentURL equals baseURL; the caller owns the ledger
// and creates it empty at crawl start.
//
// Links are always resolved against baseURL, regardless of which page they
// were found on.
//
// Design decision: We use an explicit stack instead of recursion because:
//  1. Deep or cyclic sites cannot overflow the call stack
//  2. Links are pushed in reverse, so pages are processed in exactly the
//     depth-first preorder a recursive crawl would use, which keeps the
//     ledger counts identical
//  3. Cancellation can be checked between nodes
//
// Node-level failures (invalid URLs, fetch errors) are logged and never
// returned. When ctx is cancelled the partial ledger is returned.
func (s *Spider) Crawl(ctx context.Context, baseURL, currentURL string, ledger *model.Ledger) *model.Ledger {
	normalizedBase, err := NormalizeURL(canonicalURL(baseURL))
	if err != nil {
		s.logger.Warn("not crawling: invalid base URL", "url", baseURL, "error", err)
		s.observer.Skipped(baseURL, SkipInvalidURL)
		return ledger
	}

	stack := []string{currentURL}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("crawl cancelled", "pending", len(stack), "error", err)
			return ledger
		}

		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		links := s.visit(ctx, baseURL, normalizedBase, next, ledger)
		for i := len(links) - 1; i >= 0; i-- {
			stack = append(stack, links[i])
		}
	}

	return ledger
}

// visit processes a single node and returns the links to expand next.
func (s *Spider) visit(ctx context.Context, baseURL, normalizedBase, currentURL string, ledger *model.Ledger) []string {
	current, err := NormalizeURL(canonicalURL(currentURL))
	if err != nil {
		s.logger.Warn("skipping invalid URL", "url", currentURL, "error", err)
		s.observer.Skipped(currentURL, SkipInvalidURL)
		return nil
	}

	if !s.inScope(normalizedBase, current) {
		s.logger.Debug("skipping URL outside base", "url", currentURL, "base", baseURL)
		s.observer.Skipped(currentURL, SkipOutOfScope)
		return nil
	}

	if ledger.Has(current) {
		count := ledger.Record(current)
		s.logger.Debug("already crawled, counting reference", "url", currentURL, "count", count)
		s.observer.Revisited(currentURL)
		return nil
	}

	if s.isIgnored(currentURL) {
		s.logger.Debug("skipping ignored URL", "url", currentURL)
		s.observer.Skipped(currentURL, SkipIgnored)
		return nil
	}

	if s.maxPages > 0 && ledger.Len() >= s.maxPages {
		s.logger.Debug("page limit reached, not recording", "url", currentURL, "max_pages", s.maxPages)
		s.observer.Skipped(currentURL, SkipPageLimit)
		return nil
	}

	ledger.Record(current)
	s.logger.Debug("crawling", "url", currentURL)

	start := time.Now()
	body, err := s.fetcher.FetchHTML(ctx, currentURL)
	if err != nil {
		s.logger.Warn("fetch failed", "url", currentURL, "error", err)
		s.observer.FetchFailed(currentURL, err)
		return nil
	}
	s.observer.PageFetched(currentURL, time.Since(start))

	links, err := ExtractLinks(body, baseURL)
	if err != nil {
		s.logger.Warn("link extraction failed", "url", currentURL, "error", err)
		return nil
	}

	s.logger.Debug("extracted links", "url", currentURL, "count", len(links))
	s.observer.LinksExtracted(currentURL, len(links))

	return links
}

// inScope reports whether the normalized URL current lies inside the
// normalized base according to the configured ScopeMode.
func (s *Spider) inScope(base, current string) bool {
	if current == base {
		return true
	}
	if s.scope == ScopePrefix {
		return strings.HasPrefix(current, base)
	}
	return strings.HasPrefix(current, base+"/")
}
