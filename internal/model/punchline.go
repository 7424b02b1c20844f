package model

import "time"

// FallbackLine is returned in place of generated copy when the site could not
// be used.
const FallbackLine = "Could not access website — manual review needed."

// Candidate is a generated opening line after QC and scoring.
type Candidate struct {
	Line         string   `json:"line"`
	UsedCategory Category `json:"used_category"`
	Score        float64  `json:"score"`
}

// FallbackCandidate returns the manual-review candidate.
func FallbackCandidate() Candidate {
	return Candidate{Line: FallbackLine, UsedCategory: CategoryGeneric, Score: 0}
}

// FallbackCandidates returns k manual-review candidates.
func FallbackCandidates(k int) []Candidate {
	out := make([]Candidate, 0, k)
	for range k {
		out = append(out, FallbackCandidate())
	}
	return out
}

// Target is a single pipeline input.
type Target struct {
	URL     string `json:"url"`
	Company string `json:"company"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID        string        `json:"run_id,omitempty"`
	URL          string        `json:"url"`
	Company      string        `json:"company"`
	Path         CrawlPath     `json:"path_used"`
	Lines        []Candidate   `json:"ranked_lines"`
	Evidence     []Evidence    `json:"evidence"`
	PagesFetched int           `json:"pages_fetched"`
	Duration     time.Duration `json:"duration_ns"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Best returns the top-ranked line, or the fallback line when there is none.
func (r *Result) Best() string {
	if r == nil || len(r.Lines) == 0 {
		return FallbackLine
	}
	return r.Lines[0].Line
}

// Alt returns the i-th alternate line (1-based after the best), or "".
func (r *Result) Alt(i int) string {
	if r == nil || i < 1 || i >= len(r.Lines) {
		return ""
	}
	return r.Lines[i].Line
}

// Lead is a prospect row persisted by the lead store.
type Lead struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	WebsiteURL  string    `json:"website_url"`
	LinkedInURL string    `json:"linkedin_url"`
	Punchline   string    `json:"punchline"`
	ScrapePath  CrawlPath `json:"scrape_path"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CrawlCache stores a cached crawl result.
type CrawlCache struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Pages     PageMap   `json:"pages"`
	Path      CrawlPath `json:"path"`
	CrawledAt time.Time `json:"crawled_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
