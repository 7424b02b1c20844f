package pipeline

import (
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Rule is a named pattern feeding one signal bucket.
type Rule struct {
	Name    string
	Bucket  model.Bucket
	Pattern *regexp.Regexp
}

// Find returns the byte offsets of every match of the rule in text.
func (r Rule) Find(text string) [][]int {
	if r.Pattern == nil {
		return nil
	}
	return r.Pattern.FindAllStringIndex(text, -1)
}

// DefaultRules returns the built-in heuristic rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "certification",
			Bucket:  model.BucketAwards,
			Pattern: regexp.MustCompile(`(?i)\b(certif(?:ied|ication)|award(?:s|ed)?|accredit(?:ed|ation)|iso\s?\d{4,5}|winner|ranked|top[- ]rated|recogni[sz]ed)\b`),
		},
		{
			Name:    "client_roster",
			Bucket:  model.BucketClients,
			Pattern: regexp.MustCompile(`(?i)\b(clients include|trusted by|partner(?:ed)? with|brands like|worked with|our clients)\b`),
		},
		{
			Name:    "year",
			Bucket:  model.BucketRecency,
			Pattern: regexp.MustCompile(`\b(19|20)\d{2}\b`),
		},
		{
			Name:    "announcement",
			Bucket:  model.BucketRecency,
			Pattern: regexp.MustCompile(`(?i)\b(launch(?:ed|es)?|announc(?:ed|es|ing)|introducing|just released|now available|new)\b`),
		},
		{
			Name:    "vertical",
			Bucket:  model.BucketNiche,
			Pattern: regexp.MustCompile(`(?i)\b(healthcare|saas|e-?commerce|fintech|legal|real estate|manufacturing|hospitality|nonprofit|b2b|dental|construction|logistics)\b`),
		},
		{
			Name:    "case_study",
			Bucket:  model.BucketStandout,
			Pattern: regexp.MustCompile(`(?i)\b(case stud(?:y|ies)|results|roi|increase[ds]?|grew|boosted|reduced)\b`),
		},
		{
			Name:    "percentage",
			Bucket:  model.BucketStandout,
			Pattern: regexp.MustCompile(`\b\d+(?:\.\d+)?%`),
		},
	}
}

type ruleFile struct {
	Replace bool `yaml:"replace"`
	Rules   []struct {
		Name    string `yaml:"name"`
		Bucket  string `yaml:"bucket"`
		Pattern string `yaml:"pattern"`
	} `yaml:"rules"`
}

// LoadRules reads a YAML rule file. With replace: true the file's rules stand
// alone; otherwise they are appended to DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read rules %s", path)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "extract: parse rules")
	}

	var rules []Rule
	if !f.Replace {
		rules = DefaultRules()
	}
	for _, r := range f.Rules {
		b := model.Bucket(r.Bucket)
		switch b {
		case model.BucketAwards, model.BucketClients, model.BucketRecency, model.BucketNiche, model.BucketStandout:
		default:
			return nil, eris.Errorf("extract: rule %q has unknown bucket %q", r.Name, r.Bucket)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: compile rule %q", r.Name)
		}
		rules = append(rules, Rule{Name: r.Name, Bucket: b, Pattern: re})
	}
	return rules, nil
}
