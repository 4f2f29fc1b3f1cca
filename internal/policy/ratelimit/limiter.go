// Package ratelimit throttles outbound audit calls with token buckets.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/metrics"
)

// SharedKey is the bucket used when limits are not split per site.
const SharedKey = "api"

// Config holds rate limiter configuration.
type Config struct {
	// RPS is the sustained rate. Zero or negative disables limiting.
	RPS   float64
	Burst int
	// PerSite gives each audited host its own bucket instead of one shared bucket.
	PerSite bool
}

// Limiter manages keyed token buckets.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	perSite  bool
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    r,
		burst:    burst,
		perSite:  cfg.PerSite,
	}
}

// Enabled reports whether the limiter ever blocks.
func (l *Limiter) Enabled() bool {
	return l.limit != rate.Inf
}

// Key returns the bucket a target URL is charged to.
func (l *Limiter) Key(target string) string {
	if !l.perSite {
		return SharedKey
	}
	return metrics.SanitizeSite(target)
}

// Wait blocks until a token is available for target, respecting the context.
func (l *Limiter) Wait(ctx context.Context, target string) error {
	key := l.Key(target)
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("rate limit wait: %w", ctxErr)
		}
		// The limiter refuses early when the deadline cannot be met.
		return fmt.Errorf("rate limit wait: %w: %w", context.DeadlineExceeded, err)
	}
	// An immediately available token is not a delay.
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(key, waited)
	}
	return nil
}

// Auditor waits on a Limiter before delegating each audit.
type Auditor struct {
	next    audit.Auditor
	limiter *Limiter
	logger  *zap.Logger
}

// NewAuditor wraps next so every call is charged to limiter.
func NewAuditor(next audit.Auditor, limiter *Limiter, logger *zap.Logger) (*Auditor, error) {
	if next == nil {
		return nil, fmt.Errorf("auditor is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{next: next, limiter: limiter, logger: logger}, nil
}

// Audit implements audit.Auditor.
func (a *Auditor) Audit(ctx context.Context, target string) (audit.Report, error) {
	if err := a.limiter.Wait(ctx, target); err != nil {
		a.logger.Warn("audit throttled past deadline", zap.String("url", target), zap.Error(err))
		return audit.Report{}, err
	}
	return a.next.Audit(ctx, target)
}
