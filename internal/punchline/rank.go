package punchline

import (
	"math"
	"sort"

	"github.com/sells-group/outreach-cli/internal/model"
)

var categoryWeight = map[model.Category]float64{
	model.CategoryNews:     1.2,
	model.CategoryBlog:     1.1,
	model.CategoryCases:    1.0,
	model.CategoryClients:  0.8,
	model.CategoryServices: 0.6,
	model.CategoryHome:     0.5,
	model.CategoryAbout:    0.3,
	model.CategoryGeneric:  0.2,
}

// Score rates a line attributed to category. Higher is better. maxWords is
// the QC length limit; zero means DefaultMaxWords.
func Score(line string, category model.Category, maxWords int) float64 {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	var s float64
	switch n := WordCount(line); {
	case n >= 10 && n <= maxWords:
		s += 1.5
	case n <= maxWords:
		s += 1.0
	}
	if numberRe.MatchString(line) {
		s += 0.6
	}
	if properNounRe.MatchString(line) {
		s += 0.6
	}
	if hasProvenance(line) {
		s += 0.6
	}
	s += categoryWeight[category]
	if hedgeRe.MatchString(line) {
		s -= 0.3
	}
	return math.Round(s*1000) / 1000
}

// Scored builds a candidate for a generated line. The line is credited only
// to a category in backed; a phrase from any other category counts as generic.
func Scored(line string, backed []model.Category, maxWords int) model.Candidate {
	cat := DetectCategory(line, model.CategoryGeneric, backed...)
	return model.Candidate{Line: line, UsedCategory: cat, Score: Score(line, cat, maxWords)}
}

// Rank sorts candidates best first. Ties keep their input order.
func Rank(cands []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
