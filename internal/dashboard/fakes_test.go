package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

type fakeAuditor struct {
	mu      sync.Mutex
	calls   []string
	report  audit.Report
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeAuditor) Audit(ctx context.Context, url string) (audit.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	block, started := f.block, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return audit.Report{}, ctx.Err()
		}
	}
	if f.err != nil {
		return audit.Report{}, f.err
	}
	return f.report, nil
}

func (f *fakeAuditor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRepo struct {
	mu        sync.Mutex
	order     []string
	urls      []audit.URLRecord
	results   []audit.ResultRecord
	urlErr    error
	resultErr error
}

func (f *fakeRepo) ListURLs(context.Context) ([]audit.URLRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.URLRecord(nil), f.urls...), nil
}

func (f *fakeRepo) InsertURL(_ context.Context, rec audit.URLRecord) (audit.URLRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, "url")
	if f.urlErr != nil {
		return audit.URLRecord{}, f.urlErr
	}
	f.urls = append(f.urls, rec)
	return rec, nil
}

func (f *fakeRepo) InsertResult(_ context.Context, rec audit.ResultRecord) (audit.ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, "result")
	if f.resultErr != nil {
		return audit.ResultRecord{}, f.resultErr
	}
	rec.ID = int64(len(f.results) + 1)
	f.results = append(f.results, rec)
	return rec, nil
}

func (f *fakeRepo) inserts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

type fakeTitles struct {
	title string
	err   error
	calls int
}

func (f *fakeTitles) SuggestTitle(context.Context, string) (string, error) {
	f.calls++
	return f.title, f.err
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("session-%d", s.n), nil
}

func exampleReport() audit.Report {
	return audit.Report{
		ID: "https://example.com/",
		Scores: audit.Scores{
			Performance:   0.95,
			Accessibility: 0.8,
			BestPractices: 0.4,
			PWA:           0.6,
			SEO:           0.99,
		},
	}
}
