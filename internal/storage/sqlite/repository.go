// Package sqlite provides a single-node SQLite repository for urls and results.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/clock/system"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config locates the database file and names its tables.
type Config struct {
	Path         string
	URLsTable    string
	ResultsTable string
}

// Repository implements audit.Repository on a SQLite database file.
type Repository struct {
	db           *sql.DB
	clock        audit.Clock
	urlsTable    string
	resultsTable string
}

// Open opens (or creates) the database at cfg.Path.
func Open(cfg Config, clock audit.Clock) (*Repository, error) {
	path := cfg.Path
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db.sqlite_path is required")
	}
	if cfg.URLsTable == "" {
		cfg.URLsTable = "urls"
	}
	if cfg.ResultsTable == "" {
		cfg.ResultsTable = "results"
	}
	for _, table := range []string{cfg.URLsTable, cfg.ResultsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if clock == nil {
		clock = system.New()
	}
	return &Repository{db: db, clock: clock, urlsTable: cfg.URLsTable, resultsTable: cfg.ResultsTable}, nil
}

// Migrate creates the urls and results tables when they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL
)`, r.urlsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	accessibility REAL NOT NULL,
	best_practices REAL NOT NULL,
	performance REAL NOT NULL,
	pwa REAL NOT NULL,
	seo REAL NOT NULL,
	created_at INTEGER NOT NULL
)`, r.resultsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_url_idx ON %s (url)`, r.resultsTable, r.resultsTable),
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// ListURLs selects every url row in insertion order.
func (r *Repository) ListURLs(ctx context.Context) ([]audit.URLRecord, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT url, title FROM %s ORDER BY rowid`, r.urlsTable))
	if err != nil {
		return nil, fmt.Errorf("select urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []audit.URLRecord
	for rows.Next() {
		var rec audit.URLRecord
		if err := rows.Scan(&rec.URL, &rec.Title); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate urls: %w", err)
	}
	return out, nil
}

// InsertURL inserts a url row and returns it as stored.
func (r *Repository) InsertURL(ctx context.Context, record audit.URLRecord) (audit.URLRecord, error) {
	var out audit.URLRecord
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (url, title) VALUES (?, ?) RETURNING url, title`, r.urlsTable),
		record.URL, record.Title,
	).Scan(&out.URL, &out.Title)
	if err != nil {
		if isUniqueViolation(err) {
			return audit.URLRecord{}, fmt.Errorf("insert url %s: %w", record.URL, audit.ErrDuplicateURL)
		}
		return audit.URLRecord{}, fmt.Errorf("insert url: %w", err)
	}
	return out, nil
}

// InsertResult inserts a result row and returns it with its id and creation time.
func (r *Repository) InsertResult(ctx context.Context, record audit.ResultRecord) (audit.ResultRecord, error) {
	var (
		out     audit.ResultRecord
		created int64
	)
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
INSERT INTO %s (url, accessibility, best_practices, performance, pwa, seo, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, url, accessibility, best_practices, performance, pwa, seo, created_at`, r.resultsTable),
		record.URL,
		record.Accessibility,
		record.BestPractices,
		record.Performance,
		record.PWA,
		record.SEO,
		r.clock.Now().UTC().UnixMilli(),
	).Scan(
		&out.ID,
		&out.URL,
		&out.Accessibility,
		&out.BestPractices,
		&out.Performance,
		&out.PWA,
		&out.SEO,
		&created,
	)
	if err != nil {
		return audit.ResultRecord{}, fmt.Errorf("insert result: %w", err)
	}
	out.CreatedAt = time.UnixMilli(created).UTC()
	return out, nil
}

// Ping verifies the database file is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (r *Repository) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// isUniqueViolation relies on the driver reporting extended result codes.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}
