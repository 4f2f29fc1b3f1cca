// Package postgres provides Postgres-backed persistence for urls and results.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

const uniqueViolation = "23505"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	URLsTable       string
	ResultsTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Repository reads and writes the urls and results tables.
type Repository struct {
	pool         querier
	urlsTable    string
	resultsTable string
}

// New connects a pgx pool using cfg.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	repo, err := NewWithPool(pool, cfg.URLsTable, cfg.ResultsTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// NewWithPool constructs a repository from an existing pool (primarily for testing).
func NewWithPool(pool querier, urlsTable, resultsTable string) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if urlsTable == "" {
		urlsTable = "urls"
	}
	if resultsTable == "" {
		resultsTable = "results"
	}
	for _, table := range []string{urlsTable, resultsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &Repository{pool: pool, urlsTable: urlsTable, resultsTable: resultsTable}, nil
}

// ListURLs selects every url row.
func (r *Repository) ListURLs(ctx context.Context) ([]audit.URLRecord, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT url, title FROM %s`, r.urlsTable))
	if err != nil {
		return nil, fmt.Errorf("select urls: %w", err)
	}
	defer rows.Close()

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
	query := fmt.Sprintf(`INSERT INTO %s (url, title) VALUES ($1, $2) RETURNING url, title`, r.urlsTable)
	var out audit.URLRecord
	if err := r.pool.QueryRow(ctx, query, record.URL, record.Title).Scan(&out.URL, &out.Title); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return audit.URLRecord{}, fmt.Errorf("insert url %s: %w", record.URL, audit.ErrDuplicateURL)
		}
		return audit.URLRecord{}, fmt.Errorf("insert url: %w", err)
	}
	return out, nil
}

// InsertResult inserts a result row and returns it with its id and creation time.
func (r *Repository) InsertResult(ctx context.Context, record audit.ResultRecord) (audit.ResultRecord, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (
	url,
	accessibility,
	best_practices,
	performance,
	pwa,
	seo
) VALUES (
	$1,$2,$3,$4,$5,$6
) RETURNING id, url, accessibility, best_practices, performance, pwa, seo, created_at`, r.resultsTable)

	var out audit.ResultRecord
	err := r.pool.QueryRow(ctx, query,
		record.URL,
		record.Accessibility,
		record.BestPractices,
		record.Performance,
		record.PWA,
		record.SEO,
	).Scan(
		&out.ID,
		&out.URL,
		&out.Accessibility,
		&out.BestPractices,
		&out.Performance,
		&out.PWA,
		&out.SEO,
		&out.CreatedAt,
	)
	if err != nil {
		return audit.ResultRecord{}, fmt.Errorf("insert result: %w", err)
	}
	return out, nil
}

// Ping verifies the pool can reach the server.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}
