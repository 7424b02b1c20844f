// Package anthropic is a single-turn completion client over the Anthropic
// SDK. Each call sends one system prompt and one user message.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Cache lifetimes accepted by Prompt.CacheTTL.
const (
	CacheShort = "5m"
	CacheLong  = "1h"
)

// Client sends prompts to the Messages API.
type Client interface {
	Complete(ctx context.Context, p Prompt) (*Reply, error)
}

// Prompt is one system block plus one user turn.
type Prompt struct {
	Model     string
	MaxTokens int64
	System    string
	User      string

	// CacheTTL places a cache breakpoint on the system block. Empty disables
	// prompt caching.
	CacheTTL string

	Temperature *float64
}

// Reply is the text of a completion and what it cost in tokens.
type Reply struct {
	Model      string
	Text       string
	StopReason string
	Usage      Usage
}

// Usage counts tokens billed for one call.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// Prompted returns every input token, cached or not.
func (u Usage) Prompted() int64 {
	return u.Input + u.CacheWrite + u.CacheRead
}

type sdkClient struct {
	client sdk.Client
}

// NewClient builds a Client for apiKey. opts are passed to the SDK, which is
// how tests point it at a local server.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{client: sdk.NewClient(all...)}
}

func (c *sdkClient) Complete(ctx context.Context, p Prompt) (*Reply, error) {
	msg, err := c.client.Messages.New(ctx, buildParams(p))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	return toReply(msg), nil
}

func buildParams(p Prompt) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.Model),
		MaxTokens: p.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
	}
	if p.System != "" {
		block := sdk.TextBlockParam{Text: p.System}
		if p.CacheTTL != "" {
			cc := sdk.NewCacheControlEphemeralParam()
			cc.TTL = sdk.CacheControlEphemeralTTL(p.CacheTTL)
			block.CacheControl = cc
		}
		params.System = []sdk.TextBlockParam{block}
	}
	if p.Temperature != nil {
		params.Temperature = sdk.Float(*p.Temperature)
	}
	return params
}

// toReply keeps only text blocks.
func toReply(msg *sdk.Message) *Reply {
	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return &Reply{
		Model:      string(msg.Model),
		Text:       sb.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			Input:      msg.Usage.InputTokens,
			Output:     msg.Usage.OutputTokens,
			CacheWrite: msg.Usage.CacheCreationInputTokens,
			CacheRead:  msg.Usage.CacheReadInputTokens,
		},
	}
}
