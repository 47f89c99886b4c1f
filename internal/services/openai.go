package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderVenice = "venice"

	veniceBaseURL = "https://api.venice.ai/api/v1"
)

// OpenAIGenerator implements TextGenerator against any OpenAI-compatible
// chat completions endpoint.
type OpenAIGenerator struct {
	client    *openai.Client
	provider  string
	modelName string
	logger    *slog.Logger
}

// NewOpenAIGenerator creates a generator for api.openai.com, or for baseURL
// when it is set.
func NewOpenAIGenerator(apiKey, modelName, baseURL string, logger *slog.Logger) *OpenAIGenerator {
	return newOpenAICompatible(ProviderOpenAI, apiKey, modelName, baseURL, logger)
}

// NewVeniceGenerator creates a generator for Venice AI, which speaks the
// OpenAI protocol.
func NewVeniceGenerator(apiKey, modelName string, logger *slog.Logger) *OpenAIGenerator {
	return newOpenAICompatible(ProviderVenice, apiKey, modelName, veniceBaseURL, logger)
}

func newOpenAICompatible(provider, apiKey, modelName, baseURL string, logger *slog.Logger) *OpenAIGenerator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: 90 * time.Second}

	return &OpenAIGenerator{
		client:    openai.NewClientWithConfig(config),
		provider:  provider,
		modelName: modelName,
		logger:    logger,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	req = req.withDefaults()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.modelName,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		ge := newGenerationError(g.provider, openAIStatus(err), err)
		g.logger.Warn("Chat completion failed",
			"provider", g.provider,
			"model", g.modelName,
			"status", ge.StatusCode,
			"transient", ge.Transient,
			"error", err)
		return "", ge
	}
	if len(resp.Choices) == 0 {
		return "", newGenerationError(g.provider, 0, errors.New("no choices in response"))
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		text = msgNoResponse
	}
	g.logger.Debug("Chat completion finished",
		"provider", g.provider,
		"model", g.modelName,
		"finish_reason", resp.Choices[0].FinishReason,
		"completion_tokens", resp.Usage.CompletionTokens)
	return text, nil
}

func (g *OpenAIGenerator) String() string {
	return fmt.Sprintf("%s(%s)", g.provider, g.modelName)
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
