package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/lighthouse-dashboard/internal/metrics"
)

var robotsRetryBackoff = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// robotsAwareTransport retries robots.txt probes that hit a TLS handshake timeout
// and treats a site that never answers as allowing everything.
type robotsAwareTransport struct {
	base http.RoundTripper
}

func (t *robotsAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("robots transport received nil request")
	}
	if !isRobotsTxtRequest(req) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("robots transport base roundtrip: %w", err)
		}
		return resp, nil
	}
	return roundTripWithRetry(req, t.base)
}

func isRobotsTxtRequest(req *http.Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	return strings.EqualFold(req.URL.Path, "/robots.txt")
}

func roundTripWithRetry(req *http.Request, base http.RoundTripper) (*http.Response, error) {
	maxAttempts := len(robotsRetryBackoff) + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := base.RoundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		if !isTransientTLSError(err) {
			return nil, fmt.Errorf("robots roundtrip non-transient: %w", err)
		}
		if attempt == maxAttempts-1 {
			metrics.ObserveRobotsFallback()
			return syntheticRobotsAllowAllResponse(req), nil
		}
		if err := sleepWithContext(req.Context(), robotsRetryBackoff[attempt]); err != nil {
			return nil, fmt.Errorf("robots roundtrip backoff sleep: %w", err)
		}
	}
	return nil, fmt.Errorf("robots roundtrip exhausted retries")
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("robots backoff sleep context: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func syntheticRobotsAllowAllResponse(req *http.Request) *http.Response {
	const body = "User-agent: *\nAllow: /"
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        make(http.Header),
		Request:       req,
	}
}

func isTransientTLSError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "tls: handshake timeout")
}
