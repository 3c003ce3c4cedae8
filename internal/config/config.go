package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds a single page request. Ordinary web servers
	// answer well within this; a page that takes longer is recorded as a
	// failed fetch and the crawl moves on.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages of 0 means the crawl is unbounded, matching the
	// behaviour of visiting every reachable page.
	DefaultMaxPages = 0

	// DefaultMaxBodyChars is the largest page, in characters, that is
	// parsed for links. Larger pages are recorded but not expanded.
	DefaultMaxBodyChars = 1_000_000

	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultUserAgent identifies sitecrawl in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify crawler traffic in their logs.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// DefaultDBFile is the database file name inside XDGDataDir.
	DefaultDBFile = "sitecrawl.db"
)

// Config holds all configuration options for sitecrawl.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Target is the seed URL. It is also the base URL that scopes the crawl.
	Target string

	// Timeout is the timeout for each HTTP request.
	// This applies to individual pages, not the overall crawl duration.
	Timeout time.Duration

	// MaxPages caps the number of distinct pages recorded. 0 means unlimited.
	MaxPages int

	// MaxBodyChars is the character ceiling for a page body.
	MaxBodyChars int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// When empty, requests go out directly.
	ProxyAddress string

	// PrefixScope selects plain string-prefix scoping instead of the default
	// path-segment-aware subtree check.
	PrefixScope bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON writes logs as JSON instead of text.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	// This is populated by LoadConfigFile and used when building the fetcher.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of the text report.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the text report.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// TeeReport also prints the text report to stdout when ReportFile is set.
	TeeReport bool

	// DBPath is the SQLite file the finished report is exported to.
	// When set, SaveToDB is implied.
	DBPath string

	// SaveToDB exports the finished report to SQLite. When DBPath is empty
	// the default path under XDGDataDir is used.
	SaveToDB bool

	// MetricsFile is where Prometheus text metrics are written after the
	// crawl. Empty disables metrics output.
	MetricsFile string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, body limit).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		MaxPages:     DefaultMaxPages,
		MaxBodyChars: DefaultMaxBodyChars,
		UserAgent:    DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for sitecrawl.
// On Linux: ~/.local/share/sitecrawl
// On macOS: ~/Library/Application Support/sitecrawl
// On Windows: %LOCALAPPDATA%\sitecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
// On Linux: ~/.config/sitecrawl
// On macOS: ~/Library/Application Support/sitecrawl
// On Windows: %APPDATA%\sitecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ShouldSaveToDB reports whether the finished report is exported to SQLite.
func (c *Config) ShouldSaveToDB() bool {
	return c.SaveToDB || c.DBPath != ""
}

// ResolvedDBPath returns DBPath, or the default database path when DBPath
// is empty.
func (c *Config) ResolvedDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(XDGDataDir(), DefaultDBFile)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxBodyChars <= 0 {
		return ErrInvalidMaxBodyChars
	}

	return nil
}
