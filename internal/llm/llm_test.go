package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) Complete(ctx context.Context, p anthropic.Prompt) (*anthropic.Reply, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.Reply), args.Error(1)
}

func TestAnthropicCompleter(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(p anthropic.Prompt) bool {
		return p.Model == DefaultAnthropicModel &&
			p.MaxTokens == defaultMaxTokens &&
			p.Temperature != nil && *p.Temperature == 0.6 &&
			p.System == "rules" && p.CacheTTL == anthropic.CacheLong &&
			p.User == "Company: Acme"
	})).Return(&anthropic.Reply{
		Text:  "Loved the 2024 launch.",
		Usage: anthropic.Usage{Input: 7, Output: 5, CacheRead: 100},
	}, nil).Once()

	before := testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("anthropic", "input"))
	out, err := NewAnthropicCompleter(client, "", 0).Complete(context.Background(), Request{
		System:      "rules",
		User:        "Company: Acme",
		Temperature: 0.6,
	})
	require.NoError(t, err)
	assert.Equal(t, "Loved the 2024 launch.", out)
	assert.InDelta(t, before+107, testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("anthropic", "input")), 0)
	client.AssertExpectations(t)
}

func TestAnthropicCompleter_Empty(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(&anthropic.Reply{Text: "  "}, nil)

	_, err := NewAnthropicCompleter(client, "m", 50).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestAnthropicCompleter_Error(t *testing.T) {
	client := &mockAnthropicClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(nil, eris.New("overloaded"))

	_, err := NewAnthropicCompleter(client, "m", 50).Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultGroqModel, body.Model)
		assert.InDelta(t, 0.9, body.Temperature, 1e-6)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Your case work with Shopify brands stood out."},"finish_reason":"stop"}],"usage":{"prompt_tokens":40,"completion_tokens":11,"total_tokens":51}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	before := testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("openai", "output"))
	c := NewOpenAICompleter("gsk-test", srv.URL+"/v1", DefaultGroqModel, 0)
	out, err := c.Complete(context.Background(), Request{System: "rules", User: "hi", Temperature: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "Your case work with Shopify brands stood out.", out)
	assert.InDelta(t, before+11, testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("openai", "output")), 0)
}

func TestOpenAICompleter_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewOpenAICompleter("k", srv.URL+"/v1", "m", 0).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAICompleter_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewOpenAICompleter("k", srv.URL+"/v1", "m", 0).Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("there.")}},
	}}}
	out, err := geminiText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", out)

	_, err = geminiText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	_, err = geminiText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	c, closer, err := New(ctx, Options{AnthropicKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicCompleter{}, c)
	assert.NoError(t, closer.Close())

	c, _, err = New(ctx, Options{Provider: ProviderGroq, OpenAIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultGroqModel, c.(*OpenAICompleter).model)
	assert.Equal(t, ProviderGroq, c.(*OpenAICompleter).provider)

	_, _, err = New(ctx, Options{Provider: ProviderOpenAI})
	assert.Error(t, err)
	_, _, err = New(ctx, Options{Provider: ProviderGemini})
	assert.Error(t, err)
	_, _, err = New(ctx, Options{Provider: "bogus"})
	assert.Error(t, err)
}

func TestLimited(t *testing.T) {
	calls := 0
	base := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "ok", nil
	})

	out, err := Limited(base, nil).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	c := Limited(base, lim)
	_, err = c.Complete(context.Background(), Request{})
	require.NoError(t, err)

	// The burst is spent; the next wait cannot fit the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, Request{})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}
