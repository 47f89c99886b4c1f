package services

import (
	"context"
	"fmt"
	"log/slog"
)

const ProviderMock = "mock"

// ProviderOptions selects and configures a TextGenerator.
type ProviderOptions struct {
	Provider        string
	ModelName       string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	VeniceAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
}

// NewGenerator builds the generator named by opts.Provider.
func NewGenerator(ctx context.Context, opts ProviderOptions, logger *slog.Logger) (TextGenerator, error) {
	switch opts.Provider {
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", opts.Provider)
		}
		return NewOpenAIGenerator(opts.OpenAIAPIKey, opts.ModelName, opts.OpenAIBaseURL, logger), nil
	case ProviderVenice:
		if opts.VeniceAPIKey == "" {
			return nil, fmt.Errorf("VENICE_API_KEY is required for provider %q", opts.Provider)
		}
		return NewVeniceGenerator(opts.VeniceAPIKey, opts.ModelName, logger), nil
	case ProviderAnthropic:
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", opts.Provider)
		}
		return NewAnthropicGenerator(opts.AnthropicAPIKey, opts.ModelName, logger), nil
	case ProviderGemini:
		if opts.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %q", opts.Provider)
		}
		return NewGeminiGenerator(ctx, opts.GeminiAPIKey, opts.ModelName, logger)
	case ProviderMock:
		logger.Warn("Using mock text generator")
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
}
