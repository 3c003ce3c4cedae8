package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// Crawler is the part of crawler.Spider that CrawlStep depends on.
type Crawler interface {
	Crawl(ctx context.Context, baseURL, currentURL string, ledger *model.Ledger) *model.Ledger
}

// CrawlStep runs the crawl starting at the report's base URL and freezes the
// resulting ledger into the report.
//
// Design decision: The ledger is passed in rather than created here because
// the caller owns it. This keeps the "one ledger per run" rule visible at the
// CLI boundary and lets tests pre-populate it.
type CrawlStep struct {
	crawler Crawler
	ledger  *model.Ledger
	logger  *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step that records into ledger.
// A nil ledger is replaced by an empty one.
func NewCrawlStep(crawler Crawler, ledger *model.Ledger, opts ...CrawlStepOption) *CrawlStep {
	if ledger == nil {
		ledger = model.NewLedger()
	}

	s := &CrawlStep{
		crawler: crawler,
		ledger:  ledger,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl. It never fails: node-level errors are handled
// inside the crawler, and an interrupted crawl is reported as Canceled.
func (s *CrawlStep) Do(ctx context.Context, r *model.CrawlReport) error {
	ledger := s.crawler.Crawl(ctx, r.BaseURL, r.BaseURL, s.ledger)
	if ctx.Err() != nil {
		r.Canceled = true
	}
	r.Finish(ledger)

	s.logger.Info("crawl finished",
		"base_url", r.BaseURL,
		"pages", len(r.Pages),
		"links", r.TotalLinks(),
		"canceled", r.Canceled,
		"elapsed", r.Duration(),
	)
	return nil
}

// ReportStep writes the report through a report.Writer.
type ReportStep struct {
	writer report.Writer
}

// NewReportStep creates a step that outputs the report with w.
func NewReportStep(w report.Writer) *ReportStep {
	return &ReportStep{writer: w}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, r *model.CrawlReport) error {
	if _, err := s.writer.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// DatabaseStep exports the report to a SQLite database.
//
// Design decision: The database is opened and closed inside Do rather than
// held open for the whole run, because the export happens once at the end
// and the crawl itself never reads from it.
type DatabaseStep struct {
	path   string
	opts   database.Options
	logger *slog.Logger
}

// DatabaseStepOption configures a DatabaseStep.
type DatabaseStepOption func(*DatabaseStep)

// WithDatabaseOptions overrides the options used to open the database.
func WithDatabaseOptions(opts database.Options) DatabaseStepOption {
	return func(s *DatabaseStep) {
		s.opts = opts
	}
}

// WithDatabaseLogger sets a custom logger for the database step.
func WithDatabaseLogger(logger *slog.Logger) DatabaseStepOption {
	return func(s *DatabaseStep) {
		s.logger = logger
	}
}

// NewDatabaseStep creates a step that saves the report to the database at path.
func NewDatabaseStep(path string, opts ...DatabaseStepOption) *DatabaseStep {
	s := &DatabaseStep{
		path:   path,
		opts:   database.DefaultOptions(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DatabaseStep) Name() string {
	return "database"
}

// Do saves the report.
func (s *DatabaseStep) Do(ctx context.Context, r *model.CrawlReport) (err error) {
	db, err := database.Open(s.path, s.opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", closeErr)
		}
	}()

	if err := db.SaveReport(ctx, r); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Info("report saved", "id", r.ID, "db", db.Path())
	return nil
}

// TextfileWriter is implemented by metrics.Collector.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// MetricsStep writes the collected crawl metrics to a file in the
// Prometheus text format.
type MetricsStep struct {
	metrics TextfileWriter
	path    string
}

// NewMetricsStep creates a step that writes m to path.
func NewMetricsStep(m TextfileWriter, path string) *MetricsStep {
	return &MetricsStep{metrics: m, path: path}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return "metrics"
}

// Do writes the metrics file.
func (s *MetricsStep) Do(_ context.Context, _ *model.CrawlReport) error {
	return s.metrics.WriteTextfile(s.path)
}
