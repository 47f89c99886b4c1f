package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewGenerationError_Classification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		err         error
		transient   bool
		rateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, errors.New("slow down"), true, true},
		{"server error", http.StatusBadGateway, errors.New("bad gateway"), true, false},
		{"request timeout", http.StatusRequestTimeout, errors.New("timeout"), true, false},
		{"bad request", http.StatusBadRequest, errors.New("invalid"), false, false},
		{"unauthorized", http.StatusUnauthorized, errors.New("bad key"), false, false},
		{"connection refused", 0, errors.New("dial tcp: connection refused"), true, false},
		{"deadline", 0, fmt.Errorf("post: %w", context.DeadlineExceeded), true, false},
		{"cancelled", 0, fmt.Errorf("post: %w", context.Canceled), false, false},
		{"other", 0, errors.New("malformed"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := newGenerationError("test", tt.status, tt.err)
			if ge.Transient != tt.transient {
				t.Errorf("Expected transient=%v, got %v", tt.transient, ge.Transient)
			}
			if ge.RateLimited != tt.rateLimited {
				t.Errorf("Expected rateLimited=%v, got %v", tt.rateLimited, ge.RateLimited)
			}
			if !errors.Is(ge, tt.err) {
				t.Error("Expected GenerationError to unwrap to the cause")
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	wrapped := fmt.Errorf("advance: %w", newGenerationError("test", 503, errors.New("down")))
	if !IsTransient(wrapped) {
		t.Error("Expected wrapped 503 to be transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("Expected plain error not to be transient")
	}
	if !IsRateLimited(newGenerationError("test", 429, errors.New("x"))) {
		t.Error("Expected 429 to be rate limited")
	}
}

func TestGenerationRequest_Defaults(t *testing.T) {
	r := GenerationRequest{}.withDefaults()
	if r.MaxTokens != DefaultMaxTokens || r.Temperature != DefaultTemperature {
		t.Errorf("Expected defaults, got %+v", r)
	}
	r = GenerationRequest{MaxTokens: 10, Temperature: 0.2}.withDefaults()
	if r.MaxTokens != 10 || r.Temperature != 0.2 {
		t.Errorf("Expected explicit values kept, got %+v", r)
	}
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()
	log := discardLogger()

	if _, err := NewGenerator(ctx, ProviderOptions{Provider: "unknown"}, log); err == nil {
		t.Error("Expected error for unknown provider")
	}
	if _, err := NewGenerator(ctx, ProviderOptions{Provider: ProviderOpenAI}, log); err == nil {
		t.Error("Expected error for missing OpenAI key")
	}
	g, err := NewGenerator(ctx, ProviderOptions{Provider: ProviderVenice, VeniceAPIKey: "k", ModelName: "m"}, log)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := g.(*OpenAIGenerator); !ok {
		t.Errorf("Expected Venice to use the OpenAI-compatible generator, got %T", g)
	}
	g, err = NewGenerator(ctx, ProviderOptions{Provider: ProviderMock}, log)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := g.(*MockGenerator); !ok {
		t.Errorf("Expected mock generator, got %T", g)
	}
}
