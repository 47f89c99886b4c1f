package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicGenerator_Generate(t *testing.T) {
	var got AnthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01ABC123",
			"type": "message",
			"content": [
				{"type": "text", "text": "[STORY]The gate opens."},
				{"type": "text", "text": "[/STORY]"}
			],
			"model": "claude-test",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer server.Close()

	gen := NewAnthropicGenerator("test-key", "claude-test", discardLogger()).WithBaseURL(server.URL)
	text, err := gen.Generate(context.Background(), GenerationRequest{
		SystemPrompt: "You are a storyteller.",
		UserPrompt:   "Begin.",
		MaxTokens:    300,
	})
	require.NoError(t, err)
	assert.Equal(t, "[STORY]The gate opens.[/STORY]", text)

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, "You are a storyteller.", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, DefaultTemperature, *got.Temperature, 0.0001)
}

func TestAnthropicGenerator_ErrorStatus(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"x","message":"nope"}}`))
			}))
			defer server.Close()

			gen := NewAnthropicGenerator("k", "m", discardLogger()).WithBaseURL(server.URL)
			_, err := gen.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
			require.Error(t, err)

			var ge *GenerationError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, ProviderAnthropic, ge.Provider)
			assert.Equal(t, tt.status, ge.StatusCode)
			assert.Equal(t, tt.transient, ge.Transient)
		})
	}
}

func TestAnthropicGenerator_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","type":"message","content":[]}`))
	}))
	defer server.Close()

	gen := NewAnthropicGenerator("k", "m", discardLogger()).WithBaseURL(server.URL)
	text, err := gen.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, msgNoResponse, text)
}
