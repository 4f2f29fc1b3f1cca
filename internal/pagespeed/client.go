// Package pagespeed implements audit.Auditor against the PageSpeed Insights v5 API.
package pagespeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

// DefaultBaseURL is the public runPagespeed endpoint.
const DefaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// StrategyDesktop is the only strategy the dashboard requests.
const StrategyDesktop = "desktop"

const maxBodyBytes = 32 << 20

// Config controls the API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the audit API and parses its reports.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pagespeed api status %d", e.StatusCode)
	}
	return fmt.Sprintf("pagespeed api status %d: %s", e.StatusCode, e.Message)
}

// New builds a Client. A nil httpClient gets a default client using cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

// Audit issues one GET for target and returns the parsed report.
func (c *Client) Audit(ctx context.Context, target string) (audit.Report, error) {
	endpoint, err := c.requestURL(target)
	if err != nil {
		return audit.Report{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return audit.Report{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return audit.Report{}, fmt.Errorf("call pagespeed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return audit.Report{}, fmt.Errorf("read pagespeed response: %w", err)
	}
	c.logger.Debug("pagespeed response",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return audit.Report{}, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	report, err := Parse(body)
	if err != nil {
		return audit.Report{}, err
	}
	return report, nil
}

func (c *Client) requestURL(target string) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if target == "" {
		return "", errors.New("target url is required")
	}
	q := base.Query()
	q.Set("url", target)
	q.Set("key", c.cfg.APIKey)
	for _, category := range audit.Categories {
		q.Add("category", category.QueryName())
	}
	q.Set("strategy", StrategyDesktop)
	base.RawQuery = q.Encode()
	return base.String(), nil
}
