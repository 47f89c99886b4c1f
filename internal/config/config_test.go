package config

import (
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected log level info, got %v", cfg.LogLevel)
	}
	if cfg.StorageBackend != "redis" {
		t.Errorf("Expected storage backend redis, got %s", cfg.StorageBackend)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("Expected provider openai, got %s", cfg.LLMProvider)
	}
	if cfg.MaxTokens != 1200 {
		t.Errorf("Expected max tokens 1200, got %d", cfg.MaxTokens)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("Expected retry delay 1s, got %v", cfg.RetryDelay)
	}
	if cfg.LockTTL != 30*time.Second {
		t.Errorf("Expected lock TTL 30s, got %v", cfg.LockTTL)
	}
	if !cfg.OpenEndedArcs {
		t.Error("Expected open-ended arcs by default")
	}
	if !slices.Equal(cfg.CORSOrigins, []string{"*"}) {
		t.Errorf("Expected CORS origins [*], got %v", cfg.CORSOrigins)
	}
	if got := cfg.ArcConfig().ChaptersPerArc(); got != 7 {
		t.Errorf("Expected 7 chapters per arc, got %d", got)
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LLM_PROVIDER", " Anthropic ")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("RETRY_DELAY", "250ms")
	t.Setenv("OPEN_ENDED_ARCS", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected log level debug, got %v", cfg.LogLevel)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Errorf("Expected provider anthropic, got %q", cfg.LLMProvider)
	}
	if got := cfg.StorageOptions().Backend; got != "sqlite" {
		t.Errorf("Expected storage backend sqlite, got %s", got)
	}
	if got := cfg.LadderConfig().RetryDelay; got != 250*time.Millisecond {
		t.Errorf("Expected retry delay 250ms, got %v", got)
	}
	if cfg.ArcConfig().OpenEnded {
		t.Error("Expected open-ended arcs to be disabled")
	}
	if want := []string{"https://a.example", "https://b.example"}; !slices.Equal(cfg.CORSOrigins, want) {
		t.Errorf("Expected CORS origins %v, got %v", want, cfg.CORSOrigins)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MAX_ATTEMPTS", "0")

	_, err := Parse()
	if err == nil {
		t.Fatal("Expected error for invalid configuration")
	}
	for _, key := range []string{"LLM_PROVIDER", "MONGO_URI", "MAX_ATTEMPTS"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Expected error to mention %s, got %v", key, err)
		}
	}
}

func TestParse_BadDuration(t *testing.T) {
	t.Setenv("LOCK_TTL", "soon")
	if _, err := Parse(); err == nil {
		t.Error("Expected error for unparseable duration")
	}
}
