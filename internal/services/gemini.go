package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const ProviderGemini = "gemini"

// GeminiGenerator implements TextGenerator with the Google Gen AI SDK.
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, modelName: modelName, logger: logger}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	req = req.withDefaults()
	temperature := float32(req.Temperature)

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)},
		cfg)
	if err != nil {
		status := 0
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		ge := newGenerationError(ProviderGemini, status, err)
		g.logger.Warn("Gemini request failed", "status", status, "transient", ge.Transient, "error", err)
		return "", ge
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return msgNoResponse, nil
	}
	return text, nil
}
