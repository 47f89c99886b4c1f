package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"

	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicGenerator implements TextGenerator for Anthropic's messages API.
type AnthropicGenerator struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicGenerator(apiKey, modelName string, logger *slog.Logger) *AnthropicGenerator {
	return &AnthropicGenerator{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   anthropicBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL points the generator at another host, e.g. a test server.
func (a *AnthropicGenerator) WithBaseURL(u string) *AnthropicGenerator {
	a.baseURL = strings.TrimRight(u, "/")
	return a
}

func (a *AnthropicGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	req = req.withDefaults()
	temperature := req.Temperature

	body, err := json.Marshal(AnthropicRequest{
		Model:       a.modelName,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", newGenerationError(ProviderAnthropic, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newGenerationError(ProviderAnthropic, 0, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		ge := newGenerationError(ProviderAnthropic, resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
		a.logger.Warn("Anthropic request failed",
			"status", resp.StatusCode,
			"transient", ge.Transient)
		return "", ge
	}

	var out AnthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", newGenerationError(ProviderAnthropic, resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}
	if out.Error != nil {
		return "", newGenerationError(ProviderAnthropic, resp.StatusCode, errors.New(out.Error.Message))
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return msgNoResponse, nil
	}
	return text.String(), nil
}
