// Package archive stores the raw audit API response of every successful analysis.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/clock/system"
	"github.com/JakeFAU/lighthouse-dashboard/internal/id/uuid"
	"github.com/JakeFAU/lighthouse-dashboard/internal/metrics"
)

const contentType = "application/json"

// Config controls where archived reports are written.
type Config struct {
	Prefix string
}

// Auditor wraps another audit.Auditor and writes Report.Raw to a BlobStore.
type Auditor struct {
	next   audit.Auditor
	blobs  audit.BlobStore
	prefix string
	clock  audit.Clock
	ids    audit.IDGenerator
	logger *zap.Logger
}

// Option customizes an Auditor.
type Option func(*Auditor)

// WithClock overrides the clock used for date partitions.
func WithClock(c audit.Clock) Option {
	return func(a *Auditor) { a.clock = c }
}

// WithIDGenerator overrides the object name generator.
func WithIDGenerator(g audit.IDGenerator) Option {
	return func(a *Auditor) { a.ids = g }
}

// New decorates next with archiving to blobs.
func New(next audit.Auditor, blobs audit.BlobStore, cfg Config, logger *zap.Logger, opts ...Option) (*Auditor, error) {
	if next == nil {
		return nil, fmt.Errorf("auditor is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Auditor{
		next:   next,
		blobs:  blobs,
		prefix: strings.Trim(cfg.Prefix, "/"),
		clock:  system.New(),
		ids:    uuid.New(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Audit delegates to the wrapped auditor and archives the raw body on success.
// Archive failures are logged and counted; they never fail the audit.
func (a *Auditor) Audit(ctx context.Context, url string) (audit.Report, error) {
	report, err := a.next.Audit(ctx, url)
	if err != nil {
		return report, err
	}
	if len(report.Raw) == 0 {
		return report, nil
	}
	uri, err := a.store(ctx, report.Raw)
	if err != nil {
		metrics.ObserveArchiveWrite(metrics.OutcomeError)
		a.logger.Warn("archive report failed", zap.String("url", report.ID), zap.Error(err))
		return report, nil
	}
	metrics.ObserveArchiveWrite(metrics.OutcomeSuccess)
	a.logger.Debug("report archived", zap.String("url", report.ID), zap.String("uri", uri))
	return report, nil
}

func (a *Auditor) store(ctx context.Context, raw []byte) (string, error) {
	id, err := a.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate object id: %w", err)
	}
	return a.blobs.PutObject(ctx, a.objectPath(id), contentType, bytes.NewReader(raw))
}

// objectPath builds {prefix}/{yyyy}/{mm}/{dd}/{id}.json in UTC.
func (a *Auditor) objectPath(id string) string {
	now := a.clock.Now().UTC()
	day := fmt.Sprintf("%04d/%02d/%02d", now.Year(), int(now.Month()), now.Day())
	if a.prefix == "" {
		return path.Join(day, id+".json")
	}
	return path.Join(a.prefix, day, id+".json")
}
