// Package llm adapts chat-completion backends to the single-shot text
// completion the punchline generator needs.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/metrics"
)

// Provider names a completion backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGroq      Provider = "groq"
	ProviderGemini    Provider = "gemini"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// ErrEmptyCompletion is returned when a backend answers with no text.
var ErrEmptyCompletion = eris.New("llm: empty completion")

// Request is a two-message exchange: fixed system rules plus one user turn.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer returns one text completion per call.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Limited waits on lim before every call to c.
func Limited(c Completer, lim *rate.Limiter) Completer {
	if lim == nil {
		return c
	}
	return CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		if err := lim.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "llm: rate limit wait")
		}
		return c.Complete(ctx, req)
	})
}

func nonEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func recordTokens(p Provider, in, out int64) {
	metrics.LLMTokens.WithLabelValues(string(p), "input").Add(float64(in))
	metrics.LLMTokens.WithLabelValues(string(p), "output").Add(float64(out))
}
