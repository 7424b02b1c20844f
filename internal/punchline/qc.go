package punchline

import (
	"fmt"
	"regexp"
	"strings"
)

// Rejection reasons reported by QC.
const (
	ReasonEmpty       = "empty"
	ReasonTooLong     = "too_long"
	ReasonBanned      = "banned_phrase"
	ReasonVagueSite   = "vague_website"
	ReasonOverlap     = "snippet_overlap"
	ReasonNotSpecific = "not_specific"
)

const (
	DefaultMaxWords         = 35
	DefaultOverlapThreshold = 0.30
	DefaultShingleSize      = 4
)

var (
	wordRe       = regexp.MustCompile(`\w+`)
	hedgeRe      = regexp.MustCompile(`(?i)\b(seems|maybe|probably|kind of|sort of)\b`)
	websiteRe    = regexp.MustCompile(`(?i)\bwebsite\b`)
	pageWordRe   = regexp.MustCompile(`(?i)\b(homepage|home page|about|services?|case|cases|case stud(y|ies)|portfolio|clients?|clientele|blog|post|news|press|update)\b`)
	numberRe     = regexp.MustCompile(`\b\d{4}\b|\b\d+%|\b\d+\b`)
	properNounRe = regexp.MustCompile(`[A-Z][a-z]{2,}\s[A-Z][a-z]{2,}`)
)

// DefaultBanned returns the generic-opener and hedging patterns QC rejects.
func DefaultBanned() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bi noticed\b`),
		regexp.MustCompile(`(?i)\bi was browsing\b`),
		regexp.MustCompile(`(?i)\bcame across your website\b`),
		regexp.MustCompile(`(?i)\bhope this email finds you\b`),
		regexp.MustCompile(`(?i)\byour website looks\b`),
		hedgeRe,
	}
}

// Rejection is returned by QC.Check when a line fails a rule.
type Rejection struct {
	Reason string
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return "qc: " + r.Reason
	}
	return fmt.Sprintf("qc: %s (%s)", r.Reason, r.Detail)
}

// QC filters generated lines.
type QC struct {
	MaxWords         int
	OverlapThreshold float64
	ShingleSize      int
	Banned           []*regexp.Regexp
}

// NewQC returns a QC with the default limits and banned list.
func NewQC() *QC {
	return &QC{
		MaxWords:         DefaultMaxWords,
		OverlapThreshold: DefaultOverlapThreshold,
		ShingleSize:      DefaultShingleSize,
		Banned:           DefaultBanned(),
	}
}

// Check returns nil when line passes every rule, otherwise a *Rejection.
func (q *QC) Check(line string, snippets []string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return &Rejection{Reason: ReasonEmpty}
	}
	if n := WordCount(line); n > q.maxWords() {
		return &Rejection{Reason: ReasonTooLong, Detail: fmt.Sprintf("%d words", n)}
	}
	for _, re := range q.Banned {
		if m := re.FindString(line); m != "" {
			return &Rejection{Reason: ReasonBanned, Detail: strings.ToLower(m)}
		}
	}
	if websiteRe.MatchString(line) && !pageWordRe.MatchString(websiteRe.ReplaceAllString(line, "")) {
		return &Rejection{Reason: ReasonVagueSite}
	}
	for _, s := range snippets {
		if ov := Overlap(line, s, q.shingleSize()); ov > q.threshold() {
			return &Rejection{Reason: ReasonOverlap, Detail: fmt.Sprintf("%.2f", ov)}
		}
	}
	if !isSpecific(line) {
		return &Rejection{Reason: ReasonNotSpecific}
	}
	return nil
}

func (q *QC) maxWords() int {
	if q.MaxWords <= 0 {
		return DefaultMaxWords
	}
	return q.MaxWords
}

func (q *QC) shingleSize() int {
	if q.ShingleSize <= 0 {
		return DefaultShingleSize
	}
	return q.ShingleSize
}

func (q *QC) threshold() float64 {
	if q.OverlapThreshold <= 0 {
		return DefaultOverlapThreshold
	}
	return q.OverlapThreshold
}

// WordCount counts word-character runs.
func WordCount(s string) int {
	return len(wordRe.FindAllStringIndex(s, -1))
}

// Overlap is the share of a's n-word shingles that also occur in b. It is 0
// when either side has fewer than n words.
func Overlap(a, b string, n int) float64 {
	sa := shingles(a, n)
	sb := shingles(b, n)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	shared := 0
	for s := range sa {
		if sb[s] {
			shared++
		}
	}
	return float64(shared) / float64(len(sa))
}

func shingles(s string, n int) map[string]bool {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	out := make(map[string]bool)
	for i := 0; i+n <= len(words); i++ {
		out[strings.Join(words[i:i+n], " ")] = true
	}
	return out
}

func isSpecific(line string) bool {
	return numberRe.MatchString(line) || properNounRe.MatchString(line) || hasProvenance(line)
}
