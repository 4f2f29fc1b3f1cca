package audit

import (
	"errors"
	"time"
)

// ErrDuplicateURL is returned by URL repositories when the url already exists.
var ErrDuplicateURL = errors.New("url already exists")

// Category identifies one Lighthouse report category.
type Category string

// Categories requested from the audit API.
const (
	CategoryPerformance   Category = "performance"
	CategoryAccessibility Category = "accessibility"
	CategoryBestPractices Category = "best-practices"
	CategoryPWA           Category = "pwa"
	CategorySEO           Category = "seo"
)

// Categories lists every requested category in request order.
var Categories = []Category{
	CategoryPerformance,
	CategoryAccessibility,
	CategoryBestPractices,
	CategoryPWA,
	CategorySEO,
}

// DisplayOrder is the order in which category scores are shown to the user.
var DisplayOrder = []Category{
	CategoryPerformance,
	CategoryAccessibility,
	CategoryBestPractices,
	CategorySEO,
	CategoryPWA,
}

// DisplayName returns the human readable label of the category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryPerformance:
		return "Performance"
	case CategoryAccessibility:
		return "Accessibility"
	case CategoryBestPractices:
		return "Best Practices"
	case CategoryPWA:
		return "PWA"
	case CategorySEO:
		return "SEO"
	default:
		return string(c)
	}
}

// QueryName returns the value used for the repeated category query parameter.
func (c Category) QueryName() string {
	switch c {
	case CategoryPerformance:
		return "PERFORMANCE"
	case CategoryAccessibility:
		return "ACCESSIBILITY"
	case CategoryBestPractices:
		return "BEST_PRACTICES"
	case CategoryPWA:
		return "PWA"
	case CategorySEO:
		return "SEO"
	default:
		return ""
	}
}

// Scores holds the five category scores of one analysis, each in [0,1].
type Scores struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"best_practices"`
	PWA           float64 `json:"pwa"`
	SEO           float64 `json:"seo"`
}

// Score returns the score recorded for c.
func (s Scores) Score(c Category) float64 {
	switch c {
	case CategoryPerformance:
		return s.Performance
	case CategoryAccessibility:
		return s.Accessibility
	case CategoryBestPractices:
		return s.BestPractices
	case CategoryPWA:
		return s.PWA
	case CategorySEO:
		return s.SEO
	default:
		return 0
	}
}

// Report is a parsed audit API response. It is never persisted as-is.
type Report struct {
	// ID is the canonical URL reported by the audit API and is used as the url key.
	ID        string    `json:"id"`
	Scores    Scores    `json:"scores"`
	FetchTime time.Time `json:"fetch_time,omitempty"`
	// Raw keeps the response body for archiving.
	Raw []byte `json:"-"`
}

// URLRecord identifies a previously analyzed website.
type URLRecord struct {
	URL   string `json:"url" db:"url"`
	Title string `json:"title" db:"title"`
}

// ResultRecord is a persisted snapshot of one analysis run's category scores.
type ResultRecord struct {
	ID            int64     `json:"id,omitempty" db:"id"`
	URL           string    `json:"url" db:"url"`
	Accessibility float64   `json:"accessibility" db:"accessibility"`
	BestPractices float64   `json:"best_practices" db:"best_practices"`
	Performance   float64   `json:"performance" db:"performance"`
	PWA           float64   `json:"pwa" db:"pwa"`
	SEO           float64   `json:"seo" db:"seo"`
	CreatedAt     time.Time `json:"created_at,omitempty" db:"created_at"`
}

// NewResultRecord builds the result row for a report, keyed by the report's canonical id.
func NewResultRecord(report Report) ResultRecord {
	return ResultRecord{
		URL:           report.ID,
		Accessibility: report.Scores.Accessibility,
		BestPractices: report.Scores.BestPractices,
		Performance:   report.Scores.Performance,
		PWA:           report.Scores.PWA,
		SEO:           report.Scores.SEO,
	}
}

// ResultSaved is published after a result row has been written.
type ResultSaved struct {
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	URLCreated bool      `json:"url_created"`
	ResultID   int64     `json:"result_id,omitempty"`
	Scores     Scores    `json:"scores"`
	SavedAt    time.Time `json:"saved_at"`
}
