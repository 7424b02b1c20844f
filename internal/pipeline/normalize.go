package pipeline

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var schemeRe = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`)

// NormalizeURL trims whitespace, defaults the scheme to https and strips
// trailing slashes. Empty input yields empty output.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !schemeRe.MatchString(u) {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}

// hostOf returns the lowercased host of a normalized URL, without port.
func hostOf(raw string) string {
	u, err := url.Parse(NormalizeURL(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// CompanyFromURL derives a display name from the registrable domain, e.g.
// "https://www.acme-labs.co.uk" becomes "Acme Labs".
func CompanyFromURL(raw string) string {
	host := strings.TrimPrefix(hostOf(raw), "www.")
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		domain = host
	}
	label := domain
	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix != "" && suffix != domain {
		label = strings.TrimSuffix(domain, "."+suffix)
	}
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	return cases.Title(language.English).String(strings.Join(strings.Fields(label), " "))
}
