package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
)

// Usage errors. They are returned before any crawling starts.
var (
	// errNoURL is returned when no seed URL was given.
	errNoURL = errors.New("Please provide a URL to crawl.") //nolint:staticcheck // user-facing message

	// errTooManyURLs is returned when more than one seed URL was given.
	errTooManyURLs = errors.New("Please provide only one URL to crawl.") //nolint:staticcheck // user-facing message
)

// NewRootCmd creates the root command for sitecrawl.
// The root command itself performs the crawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitecrawl <url>",
		Short: "Count internal links across a website",
		Long: `sitecrawl visits every page reachable from a seed URL under the same host
and reports how many internal links point to each page.

Only pages below the seed URL are visited: crawling https://example.com/docs
never leaves /docs. Pages are fetched one at a time in depth-first order.
Press Ctrl+C to stop early; the report for the pages seen so far is still
printed.

Examples:
  # Crawl a site and print the text report
  sitecrawl https://example.com

  # Write a JSON report to a file
  sitecrawl --json --output reports/example.json https://example.com

  # Stop after 100 distinct pages and export the result to SQLite
  sitecrawl --max-pages 100 --save https://example.com

  # Go through a SOCKS5 proxy
  sitecrawl --proxy 127.0.0.1:9050 http://example.onion

Configuration file (.sitecrawl) example:
  defaults:
    ignorePatterns:
      - "*.pdf"
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      maxPages: 500`,
		Version:       getVersion(),
		Args:          validateArgs,
		RunE:          runCrawlCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of distinct pages to record (0 = unlimited)")
	cmd.Flags().Int("max-body-chars", config.DefaultMaxBodyChars,
		"Maximum page size in characters; larger pages are not expanded")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("prefix-scope", false,
		"Treat every URL that starts with the seed URL as in scope (e.g. /docs admits /docsearch)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitecrawl in current directory, XDG config or home)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("tee", false,
		"With --output, also print the text report to stdout")

	// Export flags
	cmd.Flags().String("db", "",
		"Export the finished report to this SQLite database (implies --save)")
	cmd.Flags().Bool("save", false,
		"Export the finished report to the default SQLite database")
	cmd.Flags().String("metrics-file", "",
		"Write crawl metrics in Prometheus text format to this file")

	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// validateArgs accepts exactly one seed URL.
func validateArgs(_ *cobra.Command, args []string) error {
	switch {
	case len(args) < 1:
		return errNoURL
	case len(args) > 1:
		return errTooManyURLs
	default:
		return nil
	}
}

// Execute runs the root command.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the root command with args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, errNoURL) || errors.Is(err, errTooManyURLs) {
			fmt.Fprintf(stderr, "Usage: %s\n", cmd.UseLine())
		}
		return 1
	}
	return 0
}
