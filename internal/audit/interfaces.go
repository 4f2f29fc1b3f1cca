package audit

import (
	"context"
	"io"
	"time"
)

// Auditor runs a remote audit for a URL.
type Auditor interface {
	Audit(ctx context.Context, url string) (Report, error)
}

// URLRepository persists known URLs.
type URLRepository interface {
	ListURLs(ctx context.Context) ([]URLRecord, error)
	InsertURL(ctx context.Context, record URLRecord) (URLRecord, error)
}

// ResultRepository persists analysis results.
type ResultRepository interface {
	InsertResult(ctx context.Context, record ResultRecord) (ResultRecord, error)
}

// Repository bundles both tables with lifecycle hooks.
type Repository interface {
	URLRepository
	ResultRepository
	Ping(ctx context.Context) error
	Close()
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes save events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// TitleSuggester proposes a human readable title for a URL.
type TitleSuggester interface {
	SuggestTitle(ctx context.Context, url string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces opaque identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
