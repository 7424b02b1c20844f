package punchline

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
)

// DefaultK is the number of lines returned per target.
const DefaultK = 3

// DefaultCallTimeout bounds a single model call.
const DefaultCallTimeout = 20 * time.Second

// DefaultTemperatures returns the sampling temperatures cycled per attempt.
func DefaultTemperatures() []float64 {
	return []float64{0.8, 0.6, 1.0, 0.7, 0.9}
}

var spaceRe = regexp.MustCompile(`\s+`)

// Generator asks a Completer for opening lines until k pass QC or the
// attempt budget runs out.
type Generator struct {
	Completer    llm.Completer
	QC           *QC
	Temperatures []float64
	CallTimeout  time.Duration
	MaxTokens    int
	Rand         *rand.Rand
}

// NewGenerator returns a Generator with default QC, temperatures and timeout.
func NewGenerator(c llm.Completer) *Generator {
	return &Generator{
		Completer:    c,
		QC:           NewQC(),
		Temperatures: DefaultTemperatures(),
		CallTimeout:  DefaultCallTimeout,
	}
}

// Generate returns exactly k candidates, scored but unranked. Missing lines are
// filled with the fallback line. Empty evidence never reaches the model.
func (g *Generator) Generate(ctx context.Context, company string, evidence []model.Evidence, k int, categories []model.Category) []model.Candidate {
	if k <= 0 {
		k = DefaultK
	}
	if len(evidence) == 0 || g.Completer == nil {
		metrics.FallbackLines.Add(float64(k))
		return model.FallbackCandidates(k)
	}

	req := llm.Request{
		System:    SystemPrompt,
		User:      BuildUser(company, evidence, g.categories(categories)),
		MaxTokens: g.MaxTokens,
	}
	backed := evidenceCategories(evidence)
	snippets := make([]string, len(evidence))
	for i, ev := range evidence {
		snippets[i] = ev.Snippet
	}

	temps := g.Temperatures
	if len(temps) == 0 {
		temps = DefaultTemperatures()
	}
	qc := g.QC
	if qc == nil {
		qc = NewQC()
	}

	var out []model.Candidate
	seen := make(map[string]bool)
	budget := 2 * len(temps)
	for attempt := 0; len(out) < k && attempt < budget; attempt++ {
		if ctx.Err() != nil {
			break
		}
		req.Temperature = temps[attempt%len(temps)]
		log := zap.L().With(
			zap.String("company", company),
			zap.Int("attempt", attempt+1),
			zap.Float64("temperature", req.Temperature),
		)

		raw, err := g.call(ctx, req)
		if err != nil {
			metrics.GenerationErrors.Inc()
			log.Warn("punchline: generation failed", zap.Error(err))
			continue
		}

		line := normalizeLine(raw)
		if err := qc.Check(line, snippets); err != nil {
			var rej *Rejection
			if errors.As(err, &rej) {
				metrics.QCRejections.WithLabelValues(rej.Reason).Inc()
			}
			log.Debug("punchline: rejected", zap.String("line", line), zap.Error(err))
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			metrics.QCRejections.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[key] = true
		out = append(out, Scored(line, backed, qc.maxWords()))
	}

	if pad := k - len(out); pad > 0 {
		metrics.FallbackLines.Add(float64(pad))
		zap.L().Info("punchline: padding with fallback",
			zap.String("company", company),
			zap.Int("accepted", len(out)),
			zap.Int("fallback", pad),
		)
		out = append(out, model.FallbackCandidates(pad)...)
	}
	return out
}

func (g *Generator) call(ctx context.Context, req llm.Request) (string, error) {
	timeout := g.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.Completer.Complete(callCtx, req)
}

// categories returns the supplied categories shuffled, or the priority list
// when none were supplied.
func (g *Generator) categories(in []model.Category) []model.Category {
	if len(in) == 0 {
		return model.PriorityCategories()
	}
	out := make([]model.Category, len(in))
	copy(out, in)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if g.Rand != nil {
		g.Rand.Shuffle(len(out), swap)
	} else {
		rand.Shuffle(len(out), swap)
	}
	return out
}

// normalizeLine collapses whitespace and guarantees terminal punctuation.
func normalizeLine(raw string) string {
	line := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	line = strings.Trim(line, `"“”`)
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if !strings.ContainsAny(line[len(line)-1:], ".!?") {
		line += "."
	}
	return line
}
