package pagespeed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{`, "malformed"},
		{"missing id", `{"lighthouseResult":{"categories":{}}}`, "missing id"},
		{"missing result", `{"id":"https://example.com/"}`, "missing lighthouseResult"},
		{
			"missing category",
			`{"id":"x","lighthouseResult":{"categories":{"performance":{"score":1}}}}`,
			"missing category accessibility",
		},
		{
			"null score",
			`{"id":"x","lighthouseResult":{"categories":{"performance":{"score":null},` +
				`"accessibility":{"score":1},"best-practices":{"score":1},"pwa":{"score":1},"seo":{"score":1}}}}`,
			"performance has no score",
		},
		{
			"out of range",
			`{"id":"x","lighthouseResult":{"categories":{"performance":{"score":1.5},` +
				`"accessibility":{"score":1},"best-practices":{"score":1},"pwa":{"score":1},"seo":{"score":1}}}}`,
			"out of range",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.body))
			require.ErrorIs(t, err, ErrMalformedResponse)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseAcceptsZeroScores(t *testing.T) {
	t.Parallel()

	body := `{"id":"https://example.com/","lighthouseResult":{"fetchTime":"bogus","categories":{` +
		`"performance":{"score":0},"accessibility":{"score":0},"best-practices":{"score":0},` +
		`"pwa":{"score":0},"seo":{"score":0}}}}`
	report, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", report.ID)
	require.True(t, report.FetchTime.IsZero())
}
