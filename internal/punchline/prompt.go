package punchline

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SystemPrompt holds the fixed generation rules and style exemplars.
const SystemPrompt = `You write the first line of a cold outreach email.
Produce exactly ONE natural, human line: one or two sentences, no more than 35 words.
The line must be specific and complimentary, and about the recipient rather than us.
Avoid clichés and generic openers ("I noticed", "I came across your website", "hope this finds you well").
Never quote the evidence. Restate it in your own words.
When it reads naturally, say where on their site the detail lives (their homepage, a case study, a recent post).
Favor fresh news first, then concrete results or case work, then awards and named clients, then the homepage pitch.
Change up sentence shape from one line to the next.
Reply with the line only. No quotes, no preamble.

Style references (match the tone, never the wording):
- "Your homepage puts low-waste packaging front and center, which is a refreshing stance for a brand in such a crowded aisle."
- "The case study on scaling Shopify stores shows how deep your eCommerce focus really runs."
- "Your recent post on how smaller teams can put AI to work in marketing was a sharp, practical read."`

// BuildUser renders the user turn: company, where-phrases, evidence and the
// categories to draw from.
func BuildUser(company string, evidence []model.Evidence, categories []model.Category) string {
	where := WhereLabels(evidence)
	whereStr := DefaultWhere
	if len(where) > 0 {
		whereStr = strings.Join(where, " / ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", company)
	fmt.Fprintf(&b, "Where to reference (work one in naturally if it helps): %s\n\n", whereStr)
	b.WriteString("Use the style references for tone only; do NOT copy their wording.\n\n")
	b.WriteString("Evidence (draw on one or two items at most, reworded):\n")
	for _, ev := range evidence {
		fmt.Fprintf(&b, "- [%s] %s\n", ev.Category, ev.Snippet)
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	fmt.Fprintf(&b, "\nWrite lines drawing on these kinds: %s\n", strings.Join(names, ", "))
	b.WriteString("Return only the final line.")
	return b.String()
}
