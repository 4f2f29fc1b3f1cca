// Package urlstore holds the in-memory registry of known URLs shared by every
// dashboard session. It is rebuilt from the database on each process start.
package urlstore

import (
	"sync"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

// Store is a whole-list container of URL records with unique urls.
type Store struct {
	mu   sync.RWMutex
	urls []audit.URLRecord
}

// New constructs a Store seeded with records.
func New(records ...audit.URLRecord) *Store {
	s := &Store{}
	s.urls = dedupe(records)
	return s
}

// URLs returns a copy of the current list.
func (s *Store) URLs() []audit.URLRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.URLRecord, len(s.urls))
	copy(out, s.urls)
	return out
}

// Replace swaps the whole list. Later duplicates of a url are dropped.
func (s *Store) Replace(records []audit.URLRecord) {
	next := dedupe(records)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = next
}

// Update replaces the list with fn's result while holding the write lock, so a
// read-then-write append cannot interleave with another writer.
func (s *Store) Update(fn func(current []audit.URLRecord) []audit.URLRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := make([]audit.URLRecord, len(s.urls))
	copy(current, s.urls)
	s.urls = dedupe(fn(current))
}

// Contains reports whether url is a known record.
func (s *Store) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.urls {
		if rec.URL == url {
			return true
		}
	}
	return false
}

// Len returns the number of known urls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}

func dedupe(records []audit.URLRecord) []audit.URLRecord {
	out := make([]audit.URLRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.URL]; ok {
			continue
		}
		seen[rec.URL] = struct{}{}
		out = append(out, rec)
	}
	return out
}
