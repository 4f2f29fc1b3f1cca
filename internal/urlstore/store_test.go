package urlstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

func TestStoreReplaceAndCopy(t *testing.T) {
	t.Parallel()

	s := New()
	require.Equal(t, 0, s.Len())
	require.Empty(t, s.URLs())

	s.Replace([]audit.URLRecord{
		{URL: "https://a.example/", Title: "A"},
		{URL: "https://b.example/", Title: "B"},
	})
	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains("https://a.example/"))
	require.False(t, s.Contains("https://c.example/"))

	got := s.URLs()
	got[0].Title = "modified"
	require.Equal(t, "A", s.URLs()[0].Title, "URLs must return a copy")

	s.Replace(nil)
	require.Equal(t, 0, s.Len())
}

func TestStoreKeepsURLsUnique(t *testing.T) {
	t.Parallel()

	s := New(
		audit.URLRecord{URL: "https://a.example/", Title: "first"},
		audit.URLRecord{URL: "https://a.example/", Title: "second"},
	)
	require.Equal(t, []audit.URLRecord{{URL: "https://a.example/", Title: "first"}}, s.URLs())

	s.Update(func(current []audit.URLRecord) []audit.URLRecord {
		return append(current, audit.URLRecord{URL: "https://a.example/", Title: "again"})
	})
	require.Equal(t, 1, s.Len())
}

func TestStoreConcurrentUpdates(t *testing.T) {
	t.Parallel()

	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := audit.URLRecord{URL: "https://example.com/" + string(rune('a'+i%26)) + string(rune('a'+i/26))}
			s.Update(func(current []audit.URLRecord) []audit.URLRecord {
				return append(current, rec)
			})
		}(i)
	}
	wg.Wait()
	require.Equal(t, 50, s.Len())
}
