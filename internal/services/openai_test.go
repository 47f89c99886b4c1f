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

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "STORY: It begins."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 7, "total_tokens": 12}
		}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator("test-key", "gpt-test", server.URL, discardLogger())
	text, err := gen.Generate(context.Background(), GenerationRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
	})
	require.NoError(t, err)
	assert.Equal(t, "STORY: It begins.", text)

	assert.Equal(t, "gpt-test", got["model"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAIGenerator_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator("k", "m", server.URL, discardLogger())
	_, err := gen.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.True(t, IsTransient(err))
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator("k", "m", server.URL, discardLogger())
	_, err := gen.Generate(context.Background(), GenerationRequest{UserPrompt: "hi"})
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.False(t, ge.Transient)
}
