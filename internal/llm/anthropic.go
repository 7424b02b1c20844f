package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicCompleter completes through the Anthropic Messages API. The
// system prompt is identical across a batch, so it carries a one-hour cache
// breakpoint.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicCompleter wraps an Anthropic client.
func NewAnthropicCompleter(client anthropic.Client, model string, maxTokens int) *AnthropicCompleter {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicCompleter{client: client, model: model, maxTokens: maxTokens}
}

// Complete implements Completer.
func (a *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	temp := req.Temperature
	reply, err := a.client.Complete(ctx, anthropic.Prompt{
		Model:       a.model,
		MaxTokens:   int64(pickMaxTokens(req.MaxTokens, a.maxTokens)),
		System:      req.System,
		CacheTTL:    anthropic.CacheLong,
		User:        req.User,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	recordTokens(ProviderAnthropic, reply.Usage.Prompted(), reply.Usage.Output)
	zap.L().Debug("anthropic: usage",
		zap.String("model", a.model),
		zap.Int64("input_tokens", reply.Usage.Input),
		zap.Int64("output_tokens", reply.Usage.Output),
		zap.Int64("cache_read_tokens", reply.Usage.CacheRead),
		zap.String("stop_reason", reply.StopReason),
	)
	return nonEmpty(reply.Text)
}

const defaultMaxTokens = 120

func pickMaxTokens(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return defaultMaxTokens
}
