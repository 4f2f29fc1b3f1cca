package audit

import "math"

// Band is the display band of a score.
type Band string

// Score bands.
const (
	BandGood     Band = "good"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

const (
	goodThreshold    = 0.90
	warningThreshold = 0.50
)

// ScoreBand maps a score to its band: >= 0.90 good, >= 0.50 warning, critical otherwise.
func ScoreBand(v float64) Band {
	if v >= goodThreshold {
		return BandGood
	}
	if v >= warningThreshold {
		return BandWarning
	}
	return BandCritical
}

// Entry is one category score prepared for display.
type Entry struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Score    float64  `json:"score"`
	Percent  int      `json:"percent"`
	Band     Band     `json:"band"`
}

// Entries returns the display list for s in DisplayOrder.
func Entries(s Scores) []Entry {
	out := make([]Entry, 0, len(DisplayOrder))
	for _, c := range DisplayOrder {
		v := s.Score(c)
		out = append(out, Entry{
			Category: c,
			Name:     c.DisplayName(),
			Score:    v,
			Percent:  int(math.Round(v * 100)),
			Band:     ScoreBand(v),
		})
	}
	return out
}
