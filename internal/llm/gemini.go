package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used for the gemini provider when no model is
// configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiCompleter completes through Google Gemini.
type GeminiCompleter struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiCompleter creates a Gemini client. Close releases it.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiCompleter{client: client, model: model, maxTokens: maxTokens}, nil
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(float32(req.Temperature))
	m.SetMaxOutputTokens(int32(pickMaxTokens(req.MaxTokens, g.maxTokens)))
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}

	resp, err := m.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate content")
	}
	if u := resp.UsageMetadata; u != nil {
		recordTokens(ProviderGemini, int64(u.PromptTokenCount), int64(u.CandidatesTokenCount))
	}
	return geminiText(resp)
}

// Close releases the underlying client.
func (g *GeminiCompleter) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyCompletion
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", ErrEmptyCompletion
	}
	var parts []string
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	return nonEmpty(strings.Join(parts, ""))
}
