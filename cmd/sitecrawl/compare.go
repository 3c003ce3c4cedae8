package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
)

// dateLayout is used when printing crawl timestamps.
const dateLayout = "2006-01-02 15:04:05"

// NewCompareCmd creates the compare command.
// This command compares crawls previously exported with --save or --db.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare exported crawls of a site",
		Long: `Compare displays differences between the two most recent exported crawls
of a seed URL.

It shows:
- Pages that appeared since the previous crawl
- Pages that are no longer linked
- Pages whose internal link count changed

Crawls are only stored when 'sitecrawl --save' or 'sitecrawl --db' is used.

Examples:
  # Compare the latest two crawls of a site
  sitecrawl compare https://example.com

  # List crawl history for a site
  sitecrawl compare --list https://example.com

  # List every exported crawl
  sitecrawl compare --list

  # Compare the latest crawl with a specific one
  sitecrawl compare --with-id 1b4e28ba-2fa1-11d2-883f-0016d3cca427 https://example.com

  # Output comparison in JSON format
  sitecrawl compare --json https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().String("db", "",
		"SQLite database to read (default: sitecrawl.db in the XDG data directory)")
	cmd.Flags().BoolP("list", "l", false,
		"List exported crawls instead of comparing")
	cmd.Flags().StringP("with-id", "i", "",
		"Compare the latest crawl with the crawl that has this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	listHistory, err := flags.GetBool("list")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var baseURL string
	if len(args) == 1 {
		baseURL = args[0]
	} else if !listHistory {
		return errors.New("a URL is required (use --list to see exported crawls)")
	}

	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	withID, err := flags.GetString("with-id")
	if err != nil {
		return err
	}

	dbPath, err := flags.GetString("db")
	if err != nil {
		return err
	}
	if dbPath == "" {
		dbPath = config.NewConfig().ResolvedDBPath()
	}

	// Never create a database just to find out it is empty
	db, err := database.Open(dbPath, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listHistory {
		return listCrawlHistory(ctx, out, db, baseURL)
	}

	result, err := runComparison(ctx, db, baseURL, withID)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// listCrawlHistory lists exported crawls of baseURL, or of every URL when
// baseURL is empty.
func listCrawlHistory(ctx context.Context, out io.Writer, db *database.CrawlDB, baseURL string) error {
	crawls, err := db.ListReports(ctx, baseURL)
	if err != nil {
		return fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(crawls) == 0 {
		if baseURL == "" {
			fmt.Fprintln(out, "No crawls found in the database.")
		} else {
			fmt.Fprintf(out, "No crawl history found for %s\n", baseURL)
		}
		fmt.Fprintln(out, "\nUse 'sitecrawl --save <url>' to export a crawl.")
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d crawls):\n\n", len(crawls))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %6s  %s\n", "ID", "Date", "Pages", "Links", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, meta := range crawls {
		marker := ""
		if meta.Canceled {
			marker = " (partial)"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %6d  %s%s\n",
			meta.ID,
			meta.StartedAt.Local().Format(dateLayout),
			meta.PageCount,
			meta.TotalLinks,
			meta.BaseURL,
			marker,
		)
	}

	fmt.Fprintln(out, "\nUse 'sitecrawl compare <url>' to compare the latest two crawls.")
	return nil
}

// runComparison loads the crawls to compare and diffs them.
func runComparison(ctx context.Context, db *database.CrawlDB, baseURL, withID string) (*ComparisonResult, error) {
	crawls, err := db.ListReports(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}

	if len(crawls) == 0 {
		return nil, fmt.Errorf("no crawl history found for %s", baseURL)
	}
	if len(crawls) < 2 && withID == "" {
		return nil, fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(crawls))
	}

	current, err := db.GetReport(ctx, crawls[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawl %s: %w", crawls[0].ID, err)
	}

	previousID := withID
	if previousID == "" {
		previousID = crawls[1].ID
	}
	if previousID == current.ID {
		return nil, fmt.Errorf("crawl %s is the latest crawl; choose an older one", previousID)
	}

	previous, err := db.GetReport(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawl %s: %w", previousID, err)
	}
	if previous.BaseURL != current.BaseURL {
		return nil, fmt.Errorf("crawl %s belongs to %s, not %s", previousID, previous.BaseURL, current.BaseURL)
	}

	return compareReports(previous, current), nil
}

// ComparisonResult holds the result of comparing two crawl reports.
type ComparisonResult struct {
	// BaseURL is the seed URL of both crawls.
	BaseURL string `json:"base_url"`

	// PreviousCrawl contains metadata about the older crawl.
	PreviousCrawl CrawlSummary `json:"previous_crawl"`

	// CurrentCrawl contains metadata about the newer crawl.
	CurrentCrawl CrawlSummary `json:"current_crawl"`

	// NewPages are pages found only in the current crawl.
	NewPages []model.PageCount `json:"new_pages,omitempty"`

	// RemovedPages are pages found only in the previous crawl.
	RemovedPages []model.PageCount `json:"removed_pages,omitempty"`

	// ChangedPages are pages whose link count differs between the crawls.
	ChangedPages []PageChange `json:"changed_pages,omitempty"`

	// UnchangedCount is the number of pages with the same count in both.
	UnchangedCount int `json:"unchanged_count"`
}

// CrawlSummary contains metadata about a crawl for comparison display.
type CrawlSummary struct {
	// ID is the crawl's run ID.
	ID string `json:"id"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Canceled is true when the crawl stopped early.
	Canceled bool `json:"canceled,omitempty"`

	// Pages is the number of distinct pages.
	Pages int `json:"pages"`

	// Links is the total number of internal links.
	Links int `json:"links"`
}

// PageChange describes a page whose link count changed.
type PageChange struct {
	// URL is the normalized page URL.
	URL string `json:"url"`

	// Previous is the count in the older crawl.
	Previous int `json:"previous"`

	// Current is the count in the newer crawl.
	Current int `json:"current"`
}

// Delta returns Current - Previous.
func (c PageChange) Delta() int {
	return c.Current - c.Previous
}

// summarize extracts comparison metadata from a report.
func summarize(r *model.CrawlReport) CrawlSummary {
	return CrawlSummary{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		Canceled:  r.Canceled,
		Pages:     len(r.Pages),
		Links:     r.TotalLinks(),
	}
}

// compareReports compares two crawl reports. All page lists in the result
// are sorted by URL.
func compareReports(previous, current *model.CrawlReport) *ComparisonResult {
	result := &ComparisonResult{
		BaseURL:       current.BaseURL,
		PreviousCrawl: summarize(previous),
		CurrentCrawl:  summarize(current),
	}

	previousCounts := make(map[string]int, len(previous.Pages))
	for _, p := range previous.Pages {
		previousCounts[p.URL] = p.Count
	}
	currentCounts := make(map[string]int, len(current.Pages))
	for _, p := range current.Pages {
		currentCounts[p.URL] = p.Count
	}

	for _, p := range current.Pages {
		before, existed := previousCounts[p.URL]
		switch {
		case !existed:
			result.NewPages = append(result.NewPages, p)
		case before != p.Count:
			result.ChangedPages = append(result.ChangedPages, PageChange{URL: p.URL, Previous: before, Current: p.Count})
		default:
			result.UnchangedCount++
		}
	}
	for _, p := range previous.Pages {
		if _, exists := currentCounts[p.URL]; !exists {
			result.RemovedPages = append(result.RemovedPages, p)
		}
	}

	sort.Slice(result.NewPages, func(i, j int) bool { return result.NewPages[i].URL < result.NewPages[j].URL })
	sort.Slice(result.RemovedPages, func(i, j int) bool { return result.RemovedPages[i].URL < result.RemovedPages[j].URL })
	sort.Slice(result.ChangedPages, func(i, j int) bool { return result.ChangedPages[i].URL < result.ChangedPages[j].URL })

	return result
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Crawl Comparison: " + result.BaseURL)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{
				"Date",
				result.PreviousCrawl.StartedAt.Local().Format(dateLayout),
				result.CurrentCrawl.StartedAt.Local().Format(dateLayout),
				"-",
			},
			{
				"Pages",
				strconv.Itoa(result.PreviousCrawl.Pages),
				strconv.Itoa(result.CurrentCrawl.Pages),
				formatDelta(result.CurrentCrawl.Pages - result.PreviousCrawl.Pages),
			},
			{
				"Links",
				strconv.Itoa(result.PreviousCrawl.Links),
				strconv.Itoa(result.CurrentCrawl.Links),
				formatDelta(result.CurrentCrawl.Links - result.PreviousCrawl.Links),
			},
		},
	})
	md.PlainText("")

	if len(result.NewPages) > 0 {
		md.H2(fmt.Sprintf("New Pages (%d)", len(result.NewPages)))
		md.PlainText("")
		items := make([]string, len(result.NewPages))
		for i, p := range result.NewPages {
			items[i] = fmt.Sprintf("%s (%d)", markdown.Code(p.URL), p.Count)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.RemovedPages) > 0 {
		md.H2(fmt.Sprintf("Removed Pages (%d)", len(result.RemovedPages)))
		md.PlainText("")
		items := make([]string, len(result.RemovedPages))
		for i, p := range result.RemovedPages {
			items[i] = markdown.Strikethrough(p.URL)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ChangedPages) > 0 {
		md.H2(fmt.Sprintf("Changed Pages (%d)", len(result.ChangedPages)))
		md.PlainText("")
		rows := make([][]string, len(result.ChangedPages))
		for i, c := range result.ChangedPages {
			rows[i] = []string{markdown.Code(c.URL), strconv.Itoa(c.Previous), strconv.Itoa(c.Current), formatDelta(c.Delta())}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Previous", "Current", "Change"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainText(markdown.Italic(fmt.Sprintf("%d pages unchanged", result.UnchangedCount)))
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Crawl Comparison: %s\n", result.BaseURL)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious crawl: %s (%s)\n",
		result.PreviousCrawl.StartedAt.Local().Format(dateLayout), result.PreviousCrawl.ID)
	fmt.Fprintf(out, "Current crawl:  %s (%s)\n",
		result.CurrentCrawl.StartedAt.Local().Format(dateLayout), result.CurrentCrawl.ID)

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Pages",
		result.PreviousCrawl.Pages, result.CurrentCrawl.Pages,
		formatDelta(result.CurrentCrawl.Pages-result.PreviousCrawl.Pages))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Links",
		result.PreviousCrawl.Links, result.CurrentCrawl.Links,
		formatDelta(result.CurrentCrawl.Links-result.PreviousCrawl.Links))

	if len(result.NewPages) > 0 {
		fmt.Fprintf(out, "\nNew Pages (%d):\n", len(result.NewPages))
		for _, p := range result.NewPages {
			fmt.Fprintf(out, "  [+] %s (%d)\n", p.URL, p.Count)
		}
	}

	if len(result.RemovedPages) > 0 {
		fmt.Fprintf(out, "\nRemoved Pages (%d):\n", len(result.RemovedPages))
		for _, p := range result.RemovedPages {
			fmt.Fprintf(out, "  [-] %s\n", p.URL)
		}
	}

	if len(result.ChangedPages) > 0 {
		fmt.Fprintf(out, "\nChanged Pages (%d):\n", len(result.ChangedPages))
		for _, c := range result.ChangedPages {
			fmt.Fprintf(out, "  [~] %s: %d -> %d (%s)\n", c.URL, c.Previous, c.Current, formatDelta(c.Delta()))
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d pages\n", result.UnchangedCount)
	}

	return nil
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
