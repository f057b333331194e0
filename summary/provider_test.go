package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nijaru/yt-summary/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIComplete(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o",` +
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"00:00 - 00:10: hi"}}]}`))
	}))
	defer server.Close()

	completer, err := NewOpenAI("sk-test", "", server.URL)
	require.NoError(t, err)

	got, err := completer.Complete(context.Background(), SystemPrompt, "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "00:00 - 00:10: hi", got)

	assert.Equal(t, "gpt-4o", body.Model)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, SystemPrompt, body.Messages[0].Content)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Equal(t, "prompt text", body.Messages[1].Content)
}

func TestOpenAICompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	completer, err := NewOpenAI("sk-bad", "gpt-4o", server.URL)
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), SystemPrompt, "prompt")
	assert.Error(t, err)
}

func TestAnthropicComplete(t *testing.T) {
	var body struct {
		Model  string `json:"model"`
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
		MaxTokens int64 `json:"max_tokens"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",` +
			`"content":[{"type":"text","text":"00:00 - 00:10: "},{"type":"text","text":"hi"}],` +
			`"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer server.Close()

	completer, err := NewAnthropic("sk-ant-test", "claude-test", server.URL, 1024)
	require.NoError(t, err)

	got, err := completer.Complete(context.Background(), SystemPrompt, "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "00:00 - 00:10: hi", got)

	assert.Equal(t, "claude-test", body.Model)
	assert.Equal(t, int64(1024), body.MaxTokens)
	require.Len(t, body.System, 1)
	assert.Equal(t, SystemPrompt, body.System[0].Text)
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SummaryConfig
		wantName string
		wantErr  bool
	}{
		{"openai", config.SummaryConfig{Provider: config.ProviderOpenAI, OpenAIAPIKey: "k"}, "openai", false},
		{"anthropic", config.SummaryConfig{Provider: config.ProviderAnthropic, AnthropicAPIKey: "k"}, "anthropic", false},
		{"missing key", config.SummaryConfig{Provider: config.ProviderOpenAI}, "", true},
		{"unknown", config.SummaryConfig{Provider: "parrot"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}
