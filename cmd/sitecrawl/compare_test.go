package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
)

// newCrawl builds a finished report for baseURL started at started.
func newCrawl(baseURL string, started time.Time, pages ...model.PageCount) *model.CrawlReport {
	r := model.NewCrawlReport(baseURL)
	r.StartedAt = started
	r.FinishedAt = started.Add(time.Second)
	r.Pages = pages
	return r
}

// seedDB writes reports into a new database and returns its path.
func seedDB(t *testing.T, reports ...*model.CrawlReport) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "sitecrawl.db")
	db, err := database.Open(dbPath, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	for _, r := range reports {
		if err := db.SaveReport(context.Background(), r); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}
	return dbPath
}

// runCompare executes the compare command and returns stdout.
func runCompare(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewCompareCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCompareReports(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	previous := newCrawl("https://example.com", base,
		model.PageCount{URL: "example.com", Count: 2},
		model.PageCount{URL: "example.com/old", Count: 1},
		model.PageCount{URL: "example.com/same", Count: 3},
	)
	current := newCrawl("https://example.com", base.Add(time.Hour),
		model.PageCount{URL: "example.com", Count: 4},
		model.PageCount{URL: "example.com/same", Count: 3},
		model.PageCount{URL: "example.com/new", Count: 1},
	)

	result := compareReports(previous, current)

	if result.BaseURL != "https://example.com" {
		t.Errorf("unexpected base URL %q", result.BaseURL)
	}
	if len(result.NewPages) != 1 || result.NewPages[0].URL != "example.com/new" {
		t.Errorf("unexpected new pages %+v", result.NewPages)
	}
	if len(result.RemovedPages) != 1 || result.RemovedPages[0].URL != "example.com/old" {
		t.Errorf("unexpected removed pages %+v", result.RemovedPages)
	}
	if len(result.ChangedPages) != 1 || result.ChangedPages[0] != (PageChange{URL: "example.com", Previous: 2, Current: 4}) {
		t.Errorf("unexpected changed pages %+v", result.ChangedPages)
	}
	if result.ChangedPages[0].Delta() != 2 {
		t.Errorf("expected delta 2, got %d", result.ChangedPages[0].Delta())
	}
	if result.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged page, got %d", result.UnchangedCount)
	}
	if result.PreviousCrawl.Links != 6 || result.CurrentCrawl.Links != 8 {
		t.Errorf("unexpected link totals %d/%d", result.PreviousCrawl.Links, result.CurrentCrawl.Links)
	}
}

func TestRunCompareCmd(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older := newCrawl("https://example.com", base,
		model.PageCount{URL: "example.com", Count: 1},
		model.PageCount{URL: "example.com/gone", Count: 1},
	)
	middle := newCrawl("https://example.com", base.Add(time.Hour),
		model.PageCount{URL: "example.com", Count: 2},
	)
	latest := newCrawl("https://example.com", base.Add(2*time.Hour),
		model.PageCount{URL: "example.com", Count: 2},
		model.PageCount{URL: "example.com/fresh", Count: 1},
	)
	other := newCrawl("https://other.example", base.Add(30*time.Minute))

	dbPath := seedDB(t, older, middle, latest, other)

	t.Run("compares latest two crawls", func(t *testing.T) {
		t.Parallel()

		out, err := runCompare(t, "--db", dbPath, "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "[+] example.com/fresh (1)") {
			t.Errorf("expected new page, got:\n%s", out)
		}
		if strings.Contains(out, "example.com/gone") {
			t.Errorf("expected oldest crawl not to be used, got:\n%s", out)
		}
		if !strings.Contains(out, "Unchanged: 1 pages") {
			t.Errorf("expected unchanged count, got:\n%s", out)
		}
	})

	t.Run("compares with a specific crawl", func(t *testing.T) {
		t.Parallel()

		out, err := runCompare(t, "--db", dbPath, "--with-id", older.ID, "--json", "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.PreviousCrawl.ID != older.ID || result.CurrentCrawl.ID != latest.ID {
			t.Errorf("unexpected crawls %s -> %s", result.PreviousCrawl.ID, result.CurrentCrawl.ID)
		}
		if len(result.RemovedPages) != 1 || result.RemovedPages[0].URL != "example.com/gone" {
			t.Errorf("unexpected removed pages %+v", result.RemovedPages)
		}
		if len(result.ChangedPages) != 1 || result.ChangedPages[0].Current != 2 {
			t.Errorf("unexpected changed pages %+v", result.ChangedPages)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()

		out, err := runCompare(t, "--db", dbPath, "--markdown", "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Crawl Comparison: https://example.com", "## New Pages (1)", "`example.com/fresh`"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("rejects a crawl of another site", func(t *testing.T) {
		t.Parallel()

		_, err := runCompare(t, "--db", dbPath, "--with-id", other.ID, "https://example.com")
		if err == nil || !strings.Contains(err.Error(), "belongs to https://other.example") {
			t.Errorf("expected ownership error, got %v", err)
		}
	})

	t.Run("rejects comparing the latest crawl with itself", func(t *testing.T) {
		t.Parallel()

		_, err := runCompare(t, "--db", dbPath, "--with-id", latest.ID, "https://example.com")
		if err == nil || !strings.Contains(err.Error(), "is the latest crawl") {
			t.Errorf("expected self-comparison error, got %v", err)
		}
	})

	t.Run("needs two crawls", func(t *testing.T) {
		t.Parallel()

		_, err := runCompare(t, "--db", dbPath, "https://other.example")
		if err == nil || !strings.Contains(err.Error(), "at least 2 crawls") {
			t.Errorf("expected history error, got %v", err)
		}
	})

	t.Run("lists history", func(t *testing.T) {
		t.Parallel()

		out, err := runCompare(t, "--db", dbPath, "--list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Crawl history (4 crawls)") {
			t.Errorf("unexpected history:\n%s", out)
		}
		if strings.Index(out, latest.ID) > strings.Index(out, older.ID) {
			t.Error("expected newest crawl first")
		}
	})

	t.Run("requires a URL unless listing", func(t *testing.T) {
		t.Parallel()

		if _, err := runCompare(t, "--db", dbPath); err == nil || !strings.Contains(err.Error(), "URL is required") {
			t.Errorf("expected missing URL error, got %v", err)
		}
	})

	t.Run("missing database is not created", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "none", "sitecrawl.db")
		if _, err := runCompare(t, "--db", missing, "--list"); err == nil {
			t.Error("expected error for missing database")
		}
	})
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for delta, want := range tests {
		if got := formatDelta(delta); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", delta, got, want)
		}
	}
}
