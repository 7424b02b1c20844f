package punchline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQCCheck(t *testing.T) {
	qc := NewQC()
	snippets := []string{"Acme delivered 40% conversion lift for BrandX"}

	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{"empty", "   ", ReasonEmpty},
		{"too long", strings.Repeat("word ", 36) + "2024.", ReasonTooLong},
		{"exactly max words", strings.Repeat("word ", 34) + "2024.", ""},
		{"one over max words", strings.Repeat("word ", 35) + "2024.", ReasonTooLong},
		{"generic opener", "I noticed your 2024 launch.", ReasonBanned},
		{"browsing opener", "I was browsing and liked your 2024 launch.", ReasonBanned},
		{"website compliment", "Your website looks great after the 2024 refresh.", ReasonBanned},
		{"hedging", "Your 2024 launch seems bold.", ReasonBanned},
		{"bare website", "Your website has a bold 2024 refresh.", ReasonVagueSite},
		{"copied snippet", "Acme delivered 40% conversion lift for BrandX.", ReasonOverlap},
		{"nothing specific", "your team clearly cares about craft.", ReasonNotSpecific},
		{"passes with number and place", "Your 40% conversion lift for BrandX in your case work is a standout result.", ""},
		{"passes with website and page word", "The blog post on your website about 2024 trends was sharp.", ""},
		{"passes with proper noun", "Working with Northwind Traders shows serious range.", ""},
		{"passes with provenance only", "The care you put into sustainability on your homepage stands out.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := qc.Check(tt.line, snippets)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var rej *Rejection
			require.True(t, errors.As(err, &rej))
			assert.Equal(t, tt.reason, rej.Reason)
		})
	}
}

func TestQCCheck_OverlapAtThresholdPasses(t *testing.T) {
	qc := NewQC()
	// 13 words give 10 shingles, 3 of them shared.
	line := "alpha beta gamma delta one two three four five six seven eight 2024"
	snippet := "alpha beta gamma delta one two"
	assert.InDelta(t, 0.3, Overlap(line, snippet, 4), 1e-9)
	assert.NoError(t, qc.Check(line, []string{snippet}))
}

func TestQCCheck_OverlapAboveThresholdRejected(t *testing.T) {
	qc := NewQC()
	// 10 shingles, 4 shared.
	line := "alpha beta gamma delta one two three four five six seven eight 2024"
	snippet := "alpha beta gamma delta one two three"
	assert.InDelta(t, 0.4, Overlap(line, snippet, 4), 1e-9)

	err := qc.Check(line, []string{snippet})
	var rej *Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, ReasonOverlap, rej.Reason)
	assert.Equal(t, "0.40", rej.Detail)
}

func TestQCCheck_CustomLimits(t *testing.T) {
	qc := &QC{MaxWords: 5}
	err := qc.Check("Your 2024 launch was a real standout.", nil)
	var rej *Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, ReasonTooLong, rej.Reason)
	assert.Equal(t, "7 words", rej.Detail)
	assert.Equal(t, "qc: too_long (7 words)", rej.Error())
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 0.0, Overlap("too short", "too short", 4))
	assert.Equal(t, 0.0, Overlap("one two three four", "", 4))
	assert.Equal(t, 1.0, Overlap("One two three four", "one TWO three four five", 4))
	assert.InDelta(t, 0.5, Overlap("a b c d e", "a b c d", 4), 1e-9)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 4, WordCount("Hello, world! It's"))
	assert.Equal(t, 3, WordCount("40% lift 2024"))
}

func TestRejectionError(t *testing.T) {
	assert.Equal(t, "qc: empty", (&Rejection{Reason: ReasonEmpty}).Error())
}
