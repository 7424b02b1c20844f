package model

// Bucket names the signal group a rule feeds.
type Bucket string

const (
	BucketHero     Bucket = "hero"
	BucketAwards   Bucket = "awards"
	BucketClients  Bucket = "clients"
	BucketRecency  Bucket = "recency"
	BucketNiche    Bucket = "niche"
	BucketStandout Bucket = "standout"
)

// Signal is a categorized snippet of page text matching a heuristic.
type Signal struct {
	Category  Category `json:"category"`
	Snippet   string   `json:"snippet"`
	SourceURL string   `json:"source_url"`
}

// Signals holds extracted signals grouped by bucket. Hero may be nil.
type Signals struct {
	Hero     *Signal  `json:"hero,omitempty"`
	Awards   []Signal `json:"awards"`
	Clients  []Signal `json:"clients"`
	Recency  []Signal `json:"recency"`
	Niche    []Signal `json:"niche"`
	Standout []Signal `json:"standout"`
}

// Bucket returns the list for the named bucket. Hero is returned as a
// zero- or one-element slice.
func (s *Signals) Bucket(b Bucket) []Signal {
	switch b {
	case BucketHero:
		if s.Hero == nil {
			return nil
		}
		return []Signal{*s.Hero}
	case BucketAwards:
		return s.Awards
	case BucketClients:
		return s.Clients
	case BucketRecency:
		return s.Recency
	case BucketNiche:
		return s.Niche
	case BucketStandout:
		return s.Standout
	}
	return nil
}

// Count returns the total number of signals across buckets.
func (s *Signals) Count() int {
	n := len(s.Awards) + len(s.Clients) + len(s.Recency) + len(s.Niche) + len(s.Standout)
	if s.Hero != nil {
		n++
	}
	return n
}

// Categories returns the set of categories present in any bucket.
func (s *Signals) Categories() map[Category]bool {
	out := make(map[Category]bool)
	for _, b := range []Bucket{BucketHero, BucketAwards, BucketClients, BucketRecency, BucketNiche, BucketStandout} {
		for _, sig := range s.Bucket(b) {
			out[sig.Category] = true
		}
	}
	return out
}

// Evidence is a signal stripped of its source, handed to the generator.
type Evidence struct {
	Category Category `json:"category"`
	Snippet  string   `json:"snippet"`
}
