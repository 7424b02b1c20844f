package pipeline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/outreach-cli/internal/model"
)

const (
	defaultSnippetContext = 60
	defaultMaxPerBucket   = 5
	maxHeroChars          = 160
)

// Extractor turns crawled pages into bucketed signals.
type Extractor struct {
	Rules        []Rule
	Context      int // chars captured on each side of a match
	MaxPerBucket int
}

// NewExtractor returns an Extractor over the given rules, using
// DefaultRules when none are passed.
func NewExtractor(rules []Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{
		Rules:        rules,
		Context:      defaultSnippetContext,
		MaxPerBucket: defaultMaxPerBucket,
	}
}

// Extract scans every usable page. Error sentinels are skipped.
func (e *Extractor) Extract(pages model.PageMap) model.Signals {
	var sig model.Signals
	seen := make(map[model.Bucket]map[string]bool)

	add := func(b model.Bucket, s model.Signal) {
		if seen[b] == nil {
			seen[b] = make(map[string]bool)
		}
		key := string(s.Category) + "|" + foldSnippet(s.Snippet)
		if seen[b][key] {
			return
		}
		list := sig.Bucket(b)
		if len(list) >= e.maxPerBucket() {
			return
		}
		seen[b][key] = true
		switch b {
		case model.BucketAwards:
			sig.Awards = append(sig.Awards, s)
		case model.BucketClients:
			sig.Clients = append(sig.Clients, s)
		case model.BucketRecency:
			sig.Recency = append(sig.Recency, s)
		case model.BucketNiche:
			sig.Niche = append(sig.Niche, s)
		case model.BucketStandout:
			sig.Standout = append(sig.Standout, s)
		}
	}

	for _, p := range pages.Pages() {
		cat := ClassifyURL(p.URL)
		if cat == model.CategoryHome {
			if h := heroLine(p.Text); h != "" && (sig.Hero == nil || len(h) > len(sig.Hero.Snippet)) {
				sig.Hero = &model.Signal{Category: cat, Snippet: h, SourceURL: p.URL}
			}
		}
		for _, r := range e.Rules {
			for _, loc := range r.Find(p.Text) {
				snippet := window(p.Text, loc[0], loc[1], e.context())
				if snippet == "" {
					continue
				}
				add(r.Bucket, model.Signal{Category: cat, Snippet: snippet, SourceURL: p.URL})
			}
		}
	}

	zap.L().Debug("extract: signals extracted",
		zap.Int("pages", len(pages)),
		zap.Int("signals", sig.Count()),
	)
	return sig
}

func (e *Extractor) context() int {
	if e.Context <= 0 {
		return defaultSnippetContext
	}
	return e.Context
}

func (e *Extractor) maxPerBucket() int {
	if e.MaxPerBucket <= 0 {
		return defaultMaxPerBucket
	}
	return e.MaxPerBucket
}

var spaceRe = regexp.MustCompile(`\s+`)

// collapseSpace trims and folds runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// window returns the match plus up to ctx bytes on either side, snapped to
// rune boundaries and whitespace-collapsed.
func window(text string, start, end, ctx int) string {
	lo := max(start-ctx, 0)
	hi := min(end+ctx, len(text))
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return collapseSpace(text[lo:hi])
}

// foldSnippet normalizes a snippet for dedup comparison.
func foldSnippet(s string) string {
	return collapseSpace(cases.Fold().String(norm.NFKC.String(s)))
}

var headingRe = regexp.MustCompile(`^#{1,3}\s+(.+)$`)

// heroLine picks the longest heading-like line: a markdown heading or a short
// line whose words are all capitalized.
func heroLine(text string) string {
	var best string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		var cand string
		if m := headingRe.FindStringSubmatch(line); m != nil {
			cand = collapseSpace(m[1])
		} else if isTitleCase(line) {
			cand = collapseSpace(line)
		}
		if len(cand) > maxHeroChars {
			cand = truncateRunes(cand, maxHeroChars)
		}
		if len(cand) > len(best) {
			best = cand
		}
	}
	return best
}

func isTitleCase(line string) bool {
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 12 {
		return false
	}
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsLetter(r) && !unicode.IsUpper(r) && len(w) > 3 {
			return false
		}
	}
	return true
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
