package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/sitecrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "sitecrawl.db"), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newReport(baseURL string, started time.Time, pages ...model.PageCount) *model.CrawlReport {
	report := model.NewCrawlReport(baseURL)
	report.StartedAt = started
	report.FinishedAt = started.Add(2 * time.Second)
	report.Pages = pages
	return report
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "newdir", "subdir", "sitecrawl.db")
		db, err := Open(dbPath, DefaultOptions())
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		require.NoError(t, err, "database file should have been created")
		assert.Equal(t, dbPath, db.Path())
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(filepath.Join(dbDir, "sitecrawl.db"), Options{EnableWAL: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database not found")

		_, statErr := os.Stat(dbDir)
		assert.True(t, os.IsNotExist(statErr), "database directory should not have been created")
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "existing.db")
		db1, err := Open(dbPath, DefaultOptions())
		require.NoError(t, err)

		ctx := context.Background()
		report := newReport("https://example.com", time.Now(), model.PageCount{URL: "example.com", Count: 1})
		require.NoError(t, db1.SaveReport(ctx, report))
		require.NoError(t, db1.Close())

		db2, err := Open(dbPath, Options{EnableWAL: true})
		require.NoError(t, err)
		defer db2.Close()

		got, err := db2.GetReport(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.BaseURL, got.BaseURL)
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.True(t, opts.CreateIfNotExists)
	assert.True(t, opts.EnableWAL)
}

func TestSaveAndGetReport(t *testing.T) {
	t.Parallel()

	t.Run("round trips a report", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		started := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
		report := newReport("https://example.com", started,
			model.PageCount{URL: "example.com/about", Count: 3},
			model.PageCount{URL: "example.com", Count: 2},
			model.PageCount{URL: "example.com/blog", Count: 2},
		)
		report.Canceled = true

		require.NoError(t, db.SaveReport(ctx, report))

		got, err := db.GetReport(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.ID, got.ID)
		assert.Equal(t, report.BaseURL, got.BaseURL)
		assert.True(t, got.StartedAt.Equal(started))
		assert.True(t, got.FinishedAt.Equal(report.FinishedAt))
		assert.True(t, got.Canceled)
		assert.Equal(t, report.Pages, got.Pages)
	})

	t.Run("saving twice replaces pages", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := newReport("https://example.com", time.Now(), model.PageCount{URL: "example.com/old", Count: 1})
		require.NoError(t, db.SaveReport(ctx, report))

		report.Pages = []model.PageCount{{URL: "example.com/new", Count: 4}}
		require.NoError(t, db.SaveReport(ctx, report))

		got, err := db.GetReport(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.Pages, got.Pages)
	})

	t.Run("empty report has no pages", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := newReport("https://example.com", time.Now())
		require.NoError(t, db.SaveReport(ctx, report))

		got, err := db.GetReport(ctx, report.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.Pages)
		assert.Empty(t, got.Pages)
	})

	t.Run("unknown ID returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		_, err := db.GetReport(context.Background(), "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListReports(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	older := newReport("https://example.com", base, model.PageCount{URL: "example.com", Count: 1})
	newer := newReport("https://example.com", base.Add(time.Hour),
		model.PageCount{URL: "example.com", Count: 2},
		model.PageCount{URL: "example.com/a", Count: 1},
	)
	other := newReport("https://other.example.com", base.Add(30*time.Minute))

	for _, r := range []*model.CrawlReport{older, newer, other} {
		require.NoError(t, db.SaveReport(ctx, r))
	}

	t.Run("filters by base URL newest first", func(t *testing.T) {
		got, err := db.ListReports(ctx, "https://example.com")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, 2, got[0].PageCount)
		assert.Equal(t, 3, got[0].TotalLinks)
		assert.Equal(t, older.ID, got[1].ID)
	})

	t.Run("empty base URL lists all", func(t *testing.T) {
		got, err := db.ListReports(ctx, "")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{newer.ID, other.ID, older.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("unknown base URL lists nothing", func(t *testing.T) {
		got, err := db.ListReports(ctx, "https://unknown.example.com")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
