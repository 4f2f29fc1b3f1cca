package pagespeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

const sampleBody = `{
  "id": "https://example.com/",
  "lighthouseResult": {
    "fetchTime": "2026-10-18T10:00:00.000Z",
    "categories": {
      "performance": {"score": 0.95},
      "accessibility": {"score": 0.8},
      "best-practices": {"score": 0.4},
      "pwa": {"score": 0.6},
      "seo": {"score": 0.99}
    }
  }
}`

func TestClientAuditBuildsRequest(t *testing.T) {
	t.Parallel()

	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, APIKey: "secret"}, srv.Client(), zap.NewNop())
	report, err := client.Audit(context.Background(), "https://example.com")
	require.NoError(t, err)

	require.NotNil(t, got)
	q := got.URL.Query()
	require.Equal(t, "https://example.com", q.Get("url"))
	require.Equal(t, "secret", q.Get("key"))
	require.Equal(t, "desktop", q.Get("strategy"))
	require.Equal(t, []string{"PERFORMANCE", "ACCESSIBILITY", "BEST_PRACTICES", "PWA", "SEO"}, q["category"])

	require.Equal(t, "https://example.com/", report.ID)
	require.Equal(t, audit.Scores{
		Performance:   0.95,
		Accessibility: 0.8,
		BestPractices: 0.4,
		PWA:           0.6,
		SEO:           0.99,
	}, report.Scores)
	require.Equal(t, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), report.FetchTime)
	require.NotEmpty(t, report.Raw)
}

func TestClientAuditAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
	_, err := client.Audit(context.Background(), "https://example.com")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Error(), "API key not valid")
}

func TestClientAuditMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"https://example.com/"}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
	_, err := client.Audit(context.Background(), "https://example.com")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClientAuditHonorsContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
	_, err := client.Audit(ctx, "https://example.com")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, int32(1), calls.Load())
}

func TestClientAuditRejectsEmptyTarget(t *testing.T) {
	t.Parallel()

	client := New(Config{}, nil, nil)
	_, err := client.Audit(context.Background(), "")
	require.Error(t, err)
}
