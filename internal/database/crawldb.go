package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// timeLayout is how timestamps are stored. The fixed-width fraction keeps
// lexical order equal to chronological order; values are always stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CrawlDB provides SQLite-based storage for exported crawl reports.
//
// Design decision: Pages are stored as rows rather than as a JSON blob so
// the export can be queried directly, e.g. to find the most linked page
// across runs.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at dbPath.
// If CreateIfNotExists is true, the parent directory and database file are
// created. Otherwise a missing file is an error.
func Open(dbPath string, opts Options) (*CrawlDB, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw refuses to create a file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS crawls (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		canceled INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL,
		total_links INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_base_url ON crawls(base_url);
	CREATE INDEX IF NOT EXISTS idx_crawls_started_at ON crawls(started_at);

	-- Ledger entries of each run
	CREATE TABLE IF NOT EXISTS pages (
		crawl_id TEXT NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (crawl_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores report and its pages in a single transaction.
// Saving a report whose ID already exists replaces the earlier copy.
func (cdb *CrawlDB) SaveReport(ctx context.Context, report *model.CrawlReport) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE crawl_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear pages: %w", err)
	}

	query := `
	INSERT INTO crawls (id, base_url, started_at, finished_at, canceled, page_count, total_links)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		base_url = excluded.base_url,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		canceled = excluded.canceled,
		page_count = excluded.page_count,
		total_links = excluded.total_links
	`
	_, err = tx.ExecContext(ctx, query,
		report.ID,
		report.BaseURL,
		report.StartedAt.UTC().Format(timeLayout),
		report.FinishedAt.UTC().Format(timeLayout),
		report.Canceled,
		len(report.Pages),
		report.TotalLinks(),
	)
	if err != nil {
		return fmt.Errorf("failed to save crawl: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pages (crawl_id, url, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range report.Pages {
		if _, err = stmt.ExecContext(ctx, report.ID, p.URL, p.Count); err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// GetReport loads the report with the given ID. Pages are returned in report
// order (descending count, then URL). Returns ErrNotFound for unknown IDs.
func (cdb *CrawlDB) GetReport(ctx context.Context, id string) (*model.CrawlReport, error) {
	query := `
	SELECT id, base_url, started_at, finished_at, canceled
	FROM crawls
	WHERE id = ?
	`

	var (
		report              model.CrawlReport
		startedAt, finished string
	)
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID, &report.BaseURL, &startedAt, &finished, &report.Canceled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}
	report.StartedAt = parseTimestamp(startedAt)
	report.FinishedAt = parseTimestamp(finished)

	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, count FROM pages
	WHERE crawl_id = ?
	ORDER BY count DESC, url ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	report.Pages = make([]model.PageCount, 0)
	for rows.Next() {
		var p model.PageCount
		if err := rows.Scan(&p.URL, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		report.Pages = append(report.Pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	return &report, nil
}

// ReportMetadata contains summary information about an exported crawl.
// This is used for listing runs without loading their pages.
type ReportMetadata struct {
	// ID is the run ID.
	ID string

	// BaseURL is the seed URL of the run.
	BaseURL string

	// StartedAt is when the crawl began.
	StartedAt time.Time

	// FinishedAt is when the crawl ended.
	FinishedAt time.Time

	// Canceled is true for runs that stopped early.
	Canceled bool

	// PageCount is the number of distinct pages in the run.
	PageCount int

	// TotalLinks is the sum of all page counts.
	TotalLinks int
}

// ListReports returns metadata for every exported crawl of baseURL, newest
// first. An empty baseURL lists all crawls.
func (cdb *CrawlDB) ListReports(ctx context.Context, baseURL string) ([]ReportMetadata, error) {
	query := `
	SELECT id, base_url, started_at, finished_at, canceled, page_count, total_links
	FROM crawls
	WHERE ? = '' OR base_url = ?
	ORDER BY started_at DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	var reports []ReportMetadata
	for rows.Next() {
		var (
			m                   ReportMetadata
			startedAt, finished string
		)
		if err := rows.Scan(&m.ID, &m.BaseURL, &startedAt, &finished, &m.Canceled, &m.PageCount, &m.TotalLinks); err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		m.StartedAt = parseTimestamp(startedAt)
		m.FinishedAt = parseTimestamp(finished)
		reports = append(reports, m)
	}

	return reports, rows.Err()
}

// parseTimestamp parses a stored timestamp. Invalid values yield the zero
// time rather than failing the whole query.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
