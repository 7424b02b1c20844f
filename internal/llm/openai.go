package llm

import (
	"context"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultGroqModel is used for the groq provider when no model is configured.
const DefaultGroqModel = "llama-3.1-8b-instant"

// OpenAICompleter completes through any OpenAI-compatible chat endpoint,
// including Groq.
type OpenAICompleter struct {
	provider  Provider
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAICompleter builds a client for apiKey. An empty baseURL uses the
// library default.
func NewOpenAICompleter(apiKey, baseURL, model string, maxTokens int) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAICompleter{
		provider:  ProviderOpenAI,
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete implements Completer.
func (o *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   pickMaxTokens(req.MaxTokens, o.maxTokens),
	})
	if err != nil {
		return "", eris.Wrap(err, "openai: chat completion")
	}
	recordTokens(o.provider, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return nonEmpty(resp.Choices[0].Message.Content)
}
