// Package collyfetcher suggests page titles by fetching the analyzed site with gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const maxTitleRunes = 200

// ErrNoTitle is returned when the fetched page has no usable <title>.
var ErrNoTitle = errors.New("page has no title")

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// RespectRobots makes the fetcher honor robots.txt before requesting a page.
	RespectRobots bool
}

// Fetcher implements audit.TitleSuggester using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnHTML(string, colly.HTMLCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.WithTransport(&robotsAwareTransport{base: newHTTPTransport()})
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// SuggestTitle fetches url and returns its normalized <title> text.
func (f *Fetcher) SuggestTitle(ctx context.Context, url string) (string, error) {
	var (
		title    string
		fetchErr error
	)
	collector := f.buildCollector()
	f.configureCollectorHooks(collector, &title, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return "", err
	}
	if title == "" {
		return "", fmt.Errorf("suggest title for %s: %w", url, ErrNoTitle)
	}
	return title, nil
}

func (f *Fetcher) buildCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, title *string, fetchErr *error) {
	hooks.OnHTML("title", func(e *colly.HTMLElement) {
		if *title != "" {
			return
		}
		*title = normalizeTitle(e.Text)
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

// normalizeTitle collapses whitespace and caps the length.
func normalizeTitle(raw string) string {
	title := strings.Join(strings.Fields(raw), " ")
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = strings.TrimSpace(string(runes[:maxTitleRunes]))
	}
	return title
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
