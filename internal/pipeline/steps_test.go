package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// fakeCrawler records its arguments and writes fixed keys into the ledger.
type fakeCrawler struct {
	keys []string

	gotBase    string
	gotCurrent string
	cancel     context.CancelFunc
}

func (f *fakeCrawler) Crawl(_ context.Context, baseURL, currentURL string, ledger *model.Ledger) *model.Ledger {
	f.gotBase = baseURL
	f.gotCurrent = currentURL
	for _, k := range f.keys {
		ledger.Record(k)
	}
	if f.cancel != nil {
		f.cancel()
	}
	return ledger
}

// TestCrawlStep tests the crawl step.
func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("Name returns correct value", func(t *testing.T) {
		t.Parallel()

		if got := NewCrawlStep(&fakeCrawler{}, nil).Name(); got != "crawl" {
			t.Errorf("expected 'crawl', got %q", got)
		}
	})

	t.Run("crawls from the base URL and fills the report", func(t *testing.T) {
		t.Parallel()

		crawler := &fakeCrawler{keys: []string{"example.com", "example.com/a", "example.com/a"}}
		step := NewCrawlStep(crawler, model.NewLedger())
		r := model.NewCrawlReport("https://example.com")

		if err := step.Do(context.Background(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if crawler.gotBase != "https://example.com" || crawler.gotCurrent != "https://example.com" {
			t.Errorf("expected crawl to start at base, got %q/%q", crawler.gotBase, crawler.gotCurrent)
		}
		if len(r.Pages) != 2 || r.Pages[0] != (model.PageCount{URL: "example.com/a", Count: 2}) {
			t.Errorf("unexpected pages %+v", r.Pages)
		}
		if r.FinishedAt.IsZero() {
			t.Error("expected report to be finished")
		}
		if r.Canceled {
			t.Error("expected report not to be canceled")
		}
	})

	t.Run("uses the supplied ledger", func(t *testing.T) {
		t.Parallel()

		ledger := model.NewLedger()
		ledger.Record("example.com")

		step := NewCrawlStep(&fakeCrawler{keys: []string{"example.com"}}, ledger)
		r := model.NewCrawlReport("https://example.com")
		if err := step.Do(context.Background(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if ledger.Count("example.com") != 2 {
			t.Errorf("expected count 2 in supplied ledger, got %d", ledger.Count("example.com"))
		}
	})

	t.Run("interrupted crawl marks the report canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		step := NewCrawlStep(&fakeCrawler{keys: []string{"example.com"}, cancel: cancel}, nil)
		r := model.NewCrawlReport("https://example.com")

		if err := step.Do(ctx, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !r.Canceled {
			t.Error("expected report to be canceled")
		}
		if len(r.Pages) != 1 {
			t.Errorf("expected partial results to be kept, got %+v", r.Pages)
		}
	})
}

// failingWriter is a report.Writer that always fails.
type failingWriter struct{}

func (failingWriter) Write(*model.CrawlReport) (int, error) {
	return 0, errors.New("write failed")
}

// TestReportStep tests the report step.
func TestReportStep(t *testing.T) {
	t.Parallel()

	t.Run("writes the report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		step := NewReportStep(report.NewSimpleWriter(&buf))

		if step.Name() != "report" {
			t.Errorf("unexpected name %q", step.Name())
		}
		if err := step.Do(context.Background(), model.NewCrawlReport("https://example.com")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "REPORT for https://example.com") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("wraps writer errors", func(t *testing.T) {
		t.Parallel()

		err := NewReportStep(failingWriter{}).Do(context.Background(), model.NewCrawlReport("https://example.com"))
		if err == nil || !strings.Contains(err.Error(), "failed to write report") {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}

// TestDatabaseStep tests the SQLite export step.
func TestDatabaseStep(t *testing.T) {
	t.Parallel()

	t.Run("saves the report", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "data", "sitecrawl.db")
		r := model.NewCrawlReport("https://example.com")
		ledger := model.NewLedger()
		ledger.Record("example.com")
		r.Finish(ledger)

		step := NewDatabaseStep(dbPath)
		if step.Name() != "database" {
			t.Errorf("unexpected name %q", step.Name())
		}
		if err := step.Do(context.Background(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		db, err := database.Open(dbPath, database.Options{})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		got, err := db.GetReport(context.Background(), r.ID)
		if err != nil {
			t.Fatalf("report not saved: %v", err)
		}
		if len(got.Pages) != 1 || got.Pages[0].URL != "example.com" {
			t.Errorf("unexpected pages %+v", got.Pages)
		}
	})

	t.Run("missing database without create fails", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "missing.db")
		step := NewDatabaseStep(dbPath, WithDatabaseOptions(database.Options{}))

		if err := step.Do(context.Background(), model.NewCrawlReport("https://example.com")); err == nil {
			t.Error("expected error for missing database")
		}
		if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
			t.Error("expected database not to be created")
		}
	})
}

// fakeTextfile records the path it was asked to write.
type fakeTextfile struct {
	mu   sync.Mutex
	path string
	err  error
}

func (f *fakeTextfile) WriteTextfile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.path = path
	return f.err
}

// TestMetricsStep tests the metrics step.
func TestMetricsStep(t *testing.T) {
	t.Parallel()

	t.Run("writes to the configured path", func(t *testing.T) {
		t.Parallel()

		m := &fakeTextfile{}
		step := NewMetricsStep(m, "/tmp/sitecrawl.prom")

		if step.Name() != "metrics" {
			t.Errorf("unexpected name %q", step.Name())
		}
		if err := step.Do(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.path != "/tmp/sitecrawl.prom" {
			t.Errorf("unexpected path %q", m.path)
		}
	})

	t.Run("returns writer errors", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("read-only filesystem")
		if err := NewMetricsStep(&fakeTextfile{err: wantErr}, "x").Do(context.Background(), nil); !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
	})
}
