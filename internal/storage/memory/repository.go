// Package memory provides in-process storage for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/clock/system"
)

// Repository implements audit.Repository with slices guarded by a mutex.
type Repository struct {
	clock audit.Clock

	mu      sync.RWMutex
	urls    []audit.URLRecord
	results []audit.ResultRecord
	nextID  int64
}

// NewRepository constructs a Repository seeded with urls.
func NewRepository(seed ...audit.URLRecord) *Repository {
	return &Repository{
		clock: system.New(),
		urls:  append([]audit.URLRecord(nil), seed...),
	}
}

// ListURLs returns every stored url in insertion order.
func (r *Repository) ListURLs(_ context.Context) ([]audit.URLRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]audit.URLRecord, len(r.urls))
	copy(out, r.urls)
	return out, nil
}

// InsertURL stores a new url row.
func (r *Repository) InsertURL(_ context.Context, record audit.URLRecord) (audit.URLRecord, error) {
	if record.URL == "" {
		return audit.URLRecord{}, fmt.Errorf("url is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.urls {
		if existing.URL == record.URL {
			return audit.URLRecord{}, fmt.Errorf("insert %s: %w", record.URL, audit.ErrDuplicateURL)
		}
	}
	r.urls = append(r.urls, record)
	return record, nil
}

// InsertResult stores a result row and assigns its id and creation time.
func (r *Repository) InsertResult(_ context.Context, record audit.ResultRecord) (audit.ResultRecord, error) {
	if record.URL == "" {
		return audit.ResultRecord{}, fmt.Errorf("url is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	record.CreatedAt = r.clock.Now()
	r.results = append(r.results, record)
	return record, nil
}

// ResultsFor returns the stored results for url, oldest first.
func (r *Repository) ResultsFor(url string) []audit.ResultRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []audit.ResultRecord
	for _, rec := range r.results {
		if rec.URL == url {
			out = append(out, rec)
		}
	}
	return out
}

// Ping always succeeds.
func (r *Repository) Ping(context.Context) error { return nil }

// Close is a no-op.
func (r *Repository) Close() {}
