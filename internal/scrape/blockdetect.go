package scrape

import (
	"net/http"
	"strings"
)

// BlockType names the anti-bot wall a page rendered as. The zero value means
// the page is real content.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockDenied     BlockType = "access_denied"
)

// Blocked reports whether b is an actual block.
func (b BlockType) Blocked() bool { return b != BlockNone }

const (
	// challengeTextLimit: longer pages that mention a captcha are content.
	challengeTextLimit = 3000
	shellBodyLimit     = 2000
)

// challengeRules are checked in order against lowercased page text. A rule
// matches when every phrase in one of its groups is present.
var challengeRules = []struct {
	kind   BlockType
	groups [][]string
}{
	{BlockCloudflare, [][]string{
		{"checking your browser"},
		{"just a moment"},
		{"attention required"},
		{"cloudflare", "challenge"},
	}},
	{BlockCaptcha, [][]string{{"captcha"}}},
	{BlockDenied, [][]string{{"access denied"}, {"403 forbidden"}}},
	{BlockJSShell, [][]string{{"enable javascript"}, {"please enable cookies"}}},
}

// DetectChallenge classifies extracted page text.
func DetectChallenge(text string) BlockType {
	if len(text) > challengeTextLimit {
		return BlockNone
	}
	lower := strings.ToLower(text)
	for _, rule := range challengeRules {
		for _, group := range rule.groups {
			if containsAll(lower, group) {
				return rule.kind
			}
		}
	}
	return BlockNone
}

// DetectBlock classifies a raw HTTP response, looking at Cloudflare headers
// and JavaScript-only shells before falling back to DetectChallenge on the
// body.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}
	if isCloudflareEdge(resp) {
		return BlockCloudflare
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "cf-browser-verification") {
		return BlockCloudflare
	}
	if len(body) < shellBodyLimit {
		if containsAll(lower, []string{"<noscript", "javascript"}) || strings.Contains(lower, `meta http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return DetectChallenge(lower)
}

func isCloudflareEdge(resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusServiceUnavailable {
		return false
	}
	h := resp.Header
	return h.Get("Cf-Ray") != "" || h.Get("Cf-Cache-Status") != "" || strings.EqualFold(h.Get("Server"), "cloudflare")
}

func containsAll(s string, phrases []string) bool {
	for _, p := range phrases {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
