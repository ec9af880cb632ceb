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

	"github.com/nao1215/sitesnap/internal/model"
)

// DBFile is the database file name inside the data directory.
const DBFile = "sitesnap.db"

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// CrawlDB stores crawl runs and their page results.
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

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
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
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		crawled_at TEXT NOT NULL,
		total_pages INTEGER NOT NULL,
		saved INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_base_url ON runs(base_url);
	CREATE INDEX IF NOT EXISTS idx_runs_crawled_at ON runs(crawled_at);

	-- One row per page result; status is -1 for ERROR
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		pathname TEXT NOT NULL,
		url TEXT NOT NULL,
		status INTEGER NOT NULL,
		content_type TEXT,
		title TEXT,
		redirect_target TEXT,
		saved INTEGER NOT NULL DEFAULT 0,
		skipped TEXT,
		error TEXT,
		digest TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the stored summary of one crawl run.
type RunRecord struct {
	ID         int64
	BaseURL    string
	OutputDir  string
	CrawledAt  time.Time
	TotalPages int
	Saved      int
	Skipped    int
	Failed     int
}

// SaveRun stores a manifest and its pages in one transaction and returns
// the new run id. Page digests come from the results, since the manifest
// file does not carry them.
func (cdb *CrawlDB) SaveRun(ctx context.Context, m *model.Manifest, outputDir string) (id int64, err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is returned
		}
	}()

	s := m.Summary()
	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (base_url, output_dir, crawled_at, total_pages, saved, skipped, failed)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		m.BaseURL,
		outputDir,
		m.CrawledAt.UTC().Format(model.TimestampLayout),
		m.TotalPages,
		s.Saved,
		s.Skipped,
		s.Failed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, pathname, url, status, content_type, title, redirect_target, saved, skipped, error, digest)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range m.Pages {
		if _, err = stmt.ExecContext(ctx,
			id,
			p.Path,
			p.URL,
			int(p.Status),
			p.ContentType,
			p.Title,
			p.RedirectTarget,
			p.Saved,
			p.Skipped,
			p.Error,
			p.Digest,
		); err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", p.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListBaseURLs returns every base URL with at least one recorded run.
func (cdb *CrawlDB) ListBaseURLs(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT DISTINCT base_url FROM runs
	ORDER BY base_url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list base URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan base URL: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// ListRuns returns runs newest first. An empty baseURL lists every run;
// limit <= 0 means no limit.
func (cdb *CrawlDB) ListRuns(ctx context.Context, baseURL string, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, base_url, output_dir, crawled_at, total_pages, saved, skipped, failed
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if baseURL != "" {
		query += " AND base_url = ?"
		args = append(args, baseURL)
	}
	query += " ORDER BY crawled_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRun returns one run by id.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, base_url, output_dir, crawled_at, total_pages, saved, skipped, failed
	FROM runs
	WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun reads one runs row.
func scanRun(s scanner) (RunRecord, error) {
	var r RunRecord
	var crawledAt string

	err := s.Scan(
		&r.ID,
		&r.BaseURL,
		&r.OutputDir,
		&crawledAt,
		&r.TotalPages,
		&r.Saved,
		&r.Skipped,
		&r.Failed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("failed to scan run: %w", err)
	}

	r.CrawledAt = parseTimestamp(crawledAt)
	return r, nil
}

// GetRunPages returns a run's page results ordered like a manifest.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID int64) ([]model.PageResult, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT pathname, url, status, content_type, title, redirect_target, saved, skipped, error, digest
	FROM pages
	WHERE run_id = ?
	ORDER BY pathname, url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run pages: %w", err)
	}
	defer rows.Close()

	var pages []model.PageResult
	for rows.Next() {
		var p model.PageResult
		var status int
		var contentType, title, target, skipped, errText, digest sql.NullString

		if err := rows.Scan(
			&p.Path,
			&p.URL,
			&status,
			&contentType,
			&title,
			&target,
			&p.Saved,
			&skipped,
			&errText,
			&digest,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		p.Status = model.Status(status)
		p.ContentType = contentType.String
		p.Title = title.String
		p.RedirectTarget = target.String
		p.Skipped = skipped.String
		p.Error = errText.String
		p.Digest = digest.String
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// ChangedPages returns the URLs of pages saved by both runs whose markup
// digest differs, sorted.
func (cdb *CrawlDB) ChangedPages(ctx context.Context, olderID, newerID int64) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT n.url
	FROM pages n
	JOIN pages o ON o.url = n.url AND o.run_id = ?
	WHERE n.run_id = ?
		AND n.digest != '' AND o.digest != ''
		AND n.digest != o.digest
	ORDER BY n.url
	`, olderID, newerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compare runs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
