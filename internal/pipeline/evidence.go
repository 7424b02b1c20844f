package pipeline

import "github.com/sells-group/outreach-cli/internal/model"

// DefaultMaxEvidence is the evidence budget handed to the generator.
const DefaultMaxEvidence = 5

// evidenceOrder is the bucket priority for evidence selection. Clients are
// extracted but never selected.
var evidenceOrder = []model.Bucket{
	model.BucketRecency,
	model.BucketStandout,
	model.BucketAwards,
	model.BucketNiche,
	model.BucketHero,
}

// SelectEvidence walks buckets in priority order and keeps at most maxItems
// signals, preserving list order within a bucket.
func SelectEvidence(sig model.Signals, maxItems int) []model.Evidence {
	if maxItems <= 0 {
		maxItems = DefaultMaxEvidence
	}
	var out []model.Evidence
	for _, b := range evidenceOrder {
		for _, s := range sig.Bucket(b) {
			if len(out) >= maxItems {
				return out
			}
			out = append(out, model.Evidence{Category: s.Category, Snippet: s.Snippet})
		}
	}
	return out
}
