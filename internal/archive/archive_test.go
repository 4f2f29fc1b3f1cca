package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/memory"
)

type stubAuditor struct {
	report audit.Report
	err    error
}

func (s stubAuditor) Audit(context.Context, string) (audit.Report, error) {
	return s.report, s.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedID string

func (f fixedID) NewID() (string, error) { return string(f), nil }

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

var archiveDay = time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

func TestAuditArchivesRawReport(t *testing.T) {
	blobs := memory.NewBlobStore()
	raw := []byte(`{"id":"https://example.com/"}`)
	next := stubAuditor{report: audit.Report{ID: "https://example.com/", Raw: raw}}

	a, err := New(next, blobs, Config{Prefix: "/audits/"}, nil,
		WithClock(fixedClock{now: archiveDay}), WithIDGenerator(fixedID("0190-abc")))
	require.NoError(t, err)

	report, err := a.Audit(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", report.ID)

	data, contentType, ok := blobs.Object("audits/2024/03/02/0190-abc.json")
	require.True(t, ok, "object written under the UTC day")
	require.Equal(t, raw, data)
	require.Equal(t, "application/json", contentType)
}

func TestAuditWithoutPrefix(t *testing.T) {
	blobs := memory.NewBlobStore()
	next := stubAuditor{report: audit.Report{ID: "https://example.com/", Raw: []byte("{}")}}

	a, err := New(next, blobs, Config{}, nil,
		WithClock(fixedClock{now: time.Date(2025, 12, 9, 0, 0, 0, 0, time.UTC)}), WithIDGenerator(fixedID("x")))
	require.NoError(t, err)

	_, err = a.Audit(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"2025/12/09/x.json"}, blobs.Paths())
}

func TestAuditErrorSkipsArchive(t *testing.T) {
	blobs := memory.NewBlobStore()
	next := stubAuditor{err: errors.New("quota exceeded")}

	a, err := New(next, blobs, Config{Prefix: "audits"}, nil)
	require.NoError(t, err)

	_, err = a.Audit(context.Background(), "https://example.com")
	require.EqualError(t, err, "quota exceeded")
	require.Empty(t, blobs.Paths())
}

func TestArchiveFailureDoesNotFailAudit(t *testing.T) {
	next := stubAuditor{report: audit.Report{ID: "https://example.com/", Raw: []byte("{}")}}

	a, err := New(next, failingBlobs{}, Config{Prefix: "audits"}, nil)
	require.NoError(t, err)

	report, err := a.Audit(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", report.ID)
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(nil, memory.NewBlobStore(), Config{}, nil)
	require.Error(t, err)
	_, err = New(stubAuditor{}, nil, Config{}, nil)
	require.Error(t, err)
}
