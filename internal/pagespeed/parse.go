package pagespeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

// ErrMalformedResponse signals a response that does not carry a usable report.
var ErrMalformedResponse = errors.New("malformed pagespeed response")

type runPagespeedResponse struct {
	ID               string            `json:"id"`
	LighthouseResult *lighthouseResult `json:"lighthouseResult"`
}

type lighthouseResult struct {
	FetchTime  string                         `json:"fetchTime"`
	Categories map[string]*lighthouseCategory `json:"categories"`
}

type lighthouseCategory struct {
	Score *float64 `json:"score"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Parse validates a runPagespeed body and extracts the five category scores.
func Parse(body []byte) (audit.Report, error) {
	var payload runPagespeedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return audit.Report{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return audit.Report{}, fmt.Errorf("%w: missing id", ErrMalformedResponse)
	}
	if payload.LighthouseResult == nil {
		return audit.Report{}, fmt.Errorf("%w: missing lighthouseResult", ErrMalformedResponse)
	}

	scores := make(map[audit.Category]float64, len(audit.Categories))
	for _, category := range audit.Categories {
		entry, ok := payload.LighthouseResult.Categories[string(category)]
		if !ok || entry == nil {
			return audit.Report{}, fmt.Errorf("%w: missing category %s", ErrMalformedResponse, category)
		}
		if entry.Score == nil {
			return audit.Report{}, fmt.Errorf("%w: category %s has no score", ErrMalformedResponse, category)
		}
		v := *entry.Score
		if v < 0 || v > 1 {
			return audit.Report{}, fmt.Errorf("%w: category %s score %v out of range", ErrMalformedResponse, category, v)
		}
		scores[category] = v
	}

	report := audit.Report{
		ID: payload.ID,
		Scores: audit.Scores{
			Performance:   scores[audit.CategoryPerformance],
			Accessibility: scores[audit.CategoryAccessibility],
			BestPractices: scores[audit.CategoryBestPractices],
			PWA:           scores[audit.CategoryPWA],
			SEO:           scores[audit.CategorySEO],
		},
		Raw: body,
	}
	if ts := payload.LighthouseResult.FetchTime; ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			report.FetchTime = parsed.UTC()
		}
	}
	return report, nil
}

func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Error.Message
}
