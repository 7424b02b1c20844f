package scrape

import (
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// FollowPaths is the default allow-list of path patterns worth crawling.
var FollowPaths = []string{
	"/about",
	"/team",
	"/leadership",
	"/services",
	"/capabilities",
	"/what-we-do",
	"/work",
	"/case-studies",
	"/portfolio",
	"/blog",
	"/news",
	"/press",
}

// PathMatcher decides which discovered URL paths are worth following.
// Patterns are regular expressions matched anywhere in the lowercased path.
type PathMatcher struct {
	patterns []string
	compiled []*regexp.Regexp
}

// NewPathMatcher compiles the allow-list. Invalid patterns are skipped with
// a warning. Falls back to FollowPaths if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = FollowPaths
	}
	m := &PathMatcher{}
	for _, p := range patterns {
		re, err := regexp.Compile(strings.ToLower(p))
		if err != nil {
			zap.L().Warn("scrape: skipping invalid follow pattern",
				zap.String("pattern", p),
				zap.Error(err),
			)
			continue
		}
		m.patterns = append(m.patterns, p)
		m.compiled = append(m.compiled, re)
	}
	return m
}

// Patterns returns the patterns that compiled.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// Allows reports whether the URL's path matches any allow-listed pattern.
func (m *PathMatcher) Allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, re := range m.compiled {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}
