package postgres

import (
	"context"
	"fmt"
)

// Migrate creates the urls and results tables when they do not exist. results.url
// is not a foreign key: a result row may be written after its url insert failed.
func (r *Repository) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, r.urlsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	accessibility DOUBLE PRECISION NOT NULL,
	best_practices DOUBLE PRECISION NOT NULL,
	performance DOUBLE PRECISION NOT NULL,
	pwa DOUBLE PRECISION NOT NULL,
	seo DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, r.resultsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_url_idx ON %s (url)`, r.resultsTable, r.resultsTable),
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}
