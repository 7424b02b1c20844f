package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "claude-haiku-4-5-20251001"

func newTestClient(baseURL string) Client {
	return NewClient("test-key", option.WithBaseURL(baseURL), option.WithMaxRetries(0))
}

func messageJSON(text string, usage map[string]any) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       testModel,
		"stop_reason": "end_turn",
		"usage":       usage,
	}
}

func TestClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testModel, body["model"])
		assert.InDelta(t, 0.8, body["temperature"], 1e-9)

		system, ok := body["system"].([]any)
		require.True(t, ok)
		require.Len(t, system, 1)
		block := system[0].(map[string]any)
		assert.Equal(t, "rules", block["text"])
		cc, ok := block["cache_control"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ephemeral", cc["type"])
		assert.Equal(t, CacheLong, cc["ttl"])

		msgs, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 1)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageJSON("Loved the Harbor launch.", map[string]any{
			"input_tokens":                12,
			"output_tokens":               9,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     800,
		}))
	}))
	defer ts.Close()

	temp := 0.8
	reply, err := newTestClient(ts.URL).Complete(context.Background(), Prompt{
		Model:       testModel,
		MaxTokens:   120,
		System:      "rules",
		CacheTTL:    CacheLong,
		User:        "Company: Acme",
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Loved the Harbor launch.", reply.Text)
	assert.Equal(t, testModel, reply.Model)
	assert.Equal(t, "end_turn", reply.StopReason)
	assert.Equal(t, Usage{Input: 12, Output: 9, CacheRead: 800}, reply.Usage)
	assert.Equal(t, int64(812), reply.Usage.Prompted())
}

func TestClient_Complete_NoSystemNoTemperature(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "system")
		assert.NotContains(t, body, "temperature")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageJSON("ok", map[string]any{"input_tokens": 1, "output_tokens": 1}))
	}))
	defer ts.Close()

	reply, err := newTestClient(ts.URL).Complete(context.Background(), Prompt{
		Model:     testModel,
		MaxTokens: 16,
		User:      "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
}

func TestClient_Complete_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "api_error", "message": "Internal server error"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Complete(context.Background(), Prompt{Model: testModel, MaxTokens: 16, User: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestBuildParams_SystemWithoutCache(t *testing.T) {
	params := buildParams(Prompt{Model: testModel, MaxTokens: 50, System: "rules", User: "u"})
	require.Len(t, params.System, 1)
	assert.Equal(t, "rules", params.System[0].Text)
	assert.Empty(t, params.System[0].CacheControl.TTL)
	assert.Len(t, params.Messages, 1)
	assert.Equal(t, int64(50), params.MaxTokens)
}

func TestToReply_TextBlocksOnly(t *testing.T) {
	reply := toReply(&sdk.Message{
		Model:      testModel,
		StopReason: "max_tokens",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Hello "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "world"},
		},
		Usage: sdk.Usage{InputTokens: 3, OutputTokens: 2, CacheCreationInputTokens: 40},
	})
	assert.Equal(t, "Hello world", reply.Text)
	assert.Equal(t, "max_tokens", reply.StopReason)
	assert.Equal(t, int64(40), reply.Usage.CacheWrite)
	assert.Equal(t, int64(43), reply.Usage.Prompted())

	assert.Empty(t, toReply(&sdk.Message{}).Text)
}
