package llm

import (
	"context"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// Options selects and configures a backend.
type Options struct {
	Provider      Provider
	Model         string
	MaxTokens     int
	AnthropicKey  string
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
}

// New builds the Completer for opts.Provider. The returned io.Closer is
// never nil.
func New(ctx context.Context, opts Options) (Completer, io.Closer, error) {
	switch opts.Provider {
	case ProviderAnthropic, "":
		if opts.AnthropicKey == "" {
			return nil, nil, eris.New("llm: anthropic key is required")
		}
		return NewAnthropicCompleter(anthropic.NewClient(opts.AnthropicKey), opts.Model, opts.MaxTokens), nopCloser{}, nil
	case ProviderOpenAI:
		if opts.OpenAIKey == "" {
			return nil, nil, eris.New("llm: openai key is required")
		}
		return NewOpenAICompleter(opts.OpenAIKey, opts.OpenAIBaseURL, opts.Model, opts.MaxTokens), nopCloser{}, nil
	case ProviderGroq:
		if opts.OpenAIKey == "" {
			return nil, nil, eris.New("llm: groq key is required")
		}
		base := opts.OpenAIBaseURL
		if base == "" {
			base = GroqBaseURL
		}
		model := opts.Model
		if model == "" {
			model = DefaultGroqModel
		}
		oc := NewOpenAICompleter(opts.OpenAIKey, base, model, opts.MaxTokens)
		oc.provider = ProviderGroq
		return oc, nopCloser{}, nil
	case ProviderGemini:
		g, err := NewGeminiCompleter(ctx, opts.GeminiKey, opts.Model, opts.MaxTokens)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	}
	return nil, nil, eris.Errorf("llm: unknown provider %q", opts.Provider)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
