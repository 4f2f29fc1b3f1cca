// Package metrics exposes Prometheus collectors for the dashboard service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "route"},
	)

	auditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_audits_total",
			Help: "Total number of audit submissions, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	auditDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_audit_duration_seconds",
			Help:    "Histogram of audit API call latencies.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	savesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_saves_total",
			Help: "Total number of database inserts, labeled by table kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	knownURLs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_known_urls",
			Help: "Number of urls currently held in the shared url store.",
		},
	)

	archiveWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_archive_writes_total",
			Help: "Total number of raw report archive writes, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_audit_ratelimit_delay_seconds",
			Help:    "Time audit calls spent waiting on the outbound rate limiter, labeled by key.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"key"},
	)

	robotsFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_title_robots_fallbacks_total",
			Help: "Total number of robots.txt probes that timed out and were treated as allow-all.",
		},
	)

	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_publish_total",
			Help: "Total number of save notifications, labeled by outcome.",
		},
		[]string{"outcome"},
	)
)

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAudit counts one submission. Duration is recorded only for calls that reached the API.
func ObserveAudit(outcome string, duration time.Duration) {
	auditsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		auditDurationSeconds.Observe(duration.Seconds())
	}
}

// ObserveSave counts one insert into the urls or results table.
func ObserveSave(kind, outcome string) {
	savesTotal.WithLabelValues(kind, outcome).Inc()
}

// SetKnownURLs records the size of the shared url store.
func SetKnownURLs(n int) {
	knownURLs.Set(float64(n))
}

// ObserveArchiveWrite counts one raw report archive write.
func ObserveArchiveWrite(outcome string) {
	archiveWritesTotal.WithLabelValues(outcome).Inc()
}

// ObservePublish counts one save notification.
func ObservePublish(outcome string) {
	publishTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records how long an audit waited for a token.
func ObserveRateLimitDelay(key string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(key).Observe(d.Seconds())
}

// ObserveRobotsFallback counts one robots.txt probe replaced by an allow-all policy.
func ObserveRobotsFallback() {
	robotsFallbacksTotal.Inc()
}
